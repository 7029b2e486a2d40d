// Package app is the application surface of expresso: it owns a route
// registry and a global middleware list, and serves them over the HTTP/1.1
// connection handler.
//
// A typical program registers everything, then calls Listen:
//
//	e := app.New()
//	e.Use(transport.Logging(logger))
//	e.GetFunc("/hello", func(ctx context.Context, req *api.Request, res *api.Response, next transport.Next) *api.Response {
//		return res.Send("Hello, World!")
//	})
//	err := e.Listen(ctx, 3000, func() { fmt.Println("listening") })
//
// Registration is meant to finish before Listen. Routes and middleware
// added while serving are picked up by later requests, but which in-flight
// requests see them is not defined.
package app

// Package rapid builds typed HTTP API clients from declarative endpoint
// definitions.
//
// An endpoint pairs a request struct with a response type. Struct tags
// assign each request field a role in the outgoing request: a path
// placeholder, a query parameter, a header, or a piece of the body.
// The endpoint is introspected exactly once, when it is declared; every
// call after that only binds values, validates them, and assembles the
// request.
//
//	type GetUserRequest struct {
//		ID   int    `path:"user_id" validate:"gt=0"`
//		Full bool   `query:"full"`
//		Auth string `header:"Authorization" validate:"required"`
//	}
//
//	type User struct {
//		ID   int    `json:"id"`
//		Name string `json:"name"`
//	}
//
//	var getUser = rapid.Get[GetUserRequest, User]("/users/{user_id}")
//
//	func main() {
//		client := rapid.NewClient("https://api.example.com")
//		user, err := getUser.Call(context.Background(), client, GetUserRequest{
//			ID:   123,
//			Auth: "Bearer token",
//		})
//		// ...
//	}
//
// The response type selects how the body is decoded: *http.Response is
// returned untouched, string and []byte return the raw payload, a struct
// embedding [XMLModel] is decoded from XML, and anything else is decoded
// from JSON. Validation of both request parameters and decoded response
// models is delegated to github.com/go-playground/validator.
//
// Endpoint declarations are checked eagerly: mixing incompatible body
// kinds, malformed default literals, or referencing unknown fields in
// endpoint options panic when the endpoint is constructed, not on first
// call.
package rapid

// Package remote contains everything the post store needs to talk to the outside:
//
//   - common: configuration and the application logger
//   - serializer: encodings of a post collection (json, gob, binary)
//   - transport: the HTTP client and server transports
//   - client: the posts.json and posts REST backends
//   - server: the posts REST service with visitor statistics and metrics
package remote

// Package userstore implements the pluggable user store of the identity realm.
//
// Layering:
// - domain: users, groups, claims and their errors
// - application: user/group operations run inside a unit of work, wrapped by listener hooks
// - ports: repository, hashing, unit-of-work and listener extension points
// - adapters: postgres and memory stores, password hashing, lockout and audit listeners, HTTP
// - transport: module-private DTOs for HTTP contracts
//
// Boundary notes:
// - application talks to infrastructure only through ports.
// - Listeners are registered programmatically at composition time.
package userstore

// Package kestrel is a client-side HTTP networking engine organized
// around a composable interceptor pipeline. An immutable Request is
// carried through an ordered chain of interceptors and terminates at a
// pluggable Transport; authentication, caching, retry, timeout,
// logging, and metrics are all attached as interceptors rather than
// built into the core.
//
// See the core, auth, cache, interceptors, metrics, transporthttp, and
// config sub-packages for the concerns each one owns.
package kestrel

// Package loader registers the features served by the status server.
//
// Each feature implements Feature. The serve command registers them with a
// Manager and calls LoadAll once the middleware chain is in place.
//
//	mgr := loader.NewManager(log)
//	mgr.Register(status.NewFeature(reporter, log))
//	err := mgr.LoadAll(app)
package loader

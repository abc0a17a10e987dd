// Package module loads plugin units from disk and exposes the types they
// export.
//
// A unit declares what it exports through a Manifest. A unit built with
// -buildmode=plugin exports it as the PlugwireManifest symbol:
//
//	var PlugwireManifest = module.NewManifest("greeters",
//		module.Contract[greet.Greeter](),
//		module.Implementation("EnglishGreeter", NewEnglishGreeter),
//	)
//
// Units compiled into the host register their manifest under a path at
// init time instead, the way database/sql drivers register themselves:
//
//	func init() { module.Register("plugins/a/a.so", manifest) }
//
// A Catalog finds units on an afero filesystem, loads each path at most
// once and caches the resulting Module for the life of the process.
package module

// Package schema resolves the schema-dependent knowledge the splitter needs:
// which type labels are roots, which entities are containers, how the spatial
// hierarchy is rooted, which relationship records feed the index, and which
// attribute names belong to which positions.
//
// This knowledge is captured in a Profile. Profiles are written in HCL; a
// default profile covering the IFC schemas is embedded in the binary, and
// additional profile files can extend or replace it. Inside a profile file
// the cty standard functions upper, lower, concat and distinct are available,
// together with a builtin object exposing the embedded default lists:
//
//	profile "custom" {
//	  schemas = ["IFC4"]
//	  containers {
//	    types = concat(builtin.container_types, ["IFCSPACE"])
//	  }
//	  roots {
//	    types = concat(builtin.root_types, ["IFCMYEXTENSION"])
//	  }
//	}
//
// Root classification is resolved once when a profile is built and exposed as
// the pure predicate Profile.IsRoot.
package schema

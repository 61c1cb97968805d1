// Package regmap holds the per-model tables that map logical chamber
// parameters to wire addresses.
//
// A Table is keyed by a Param and a 1-based index (loop, cascade, event or
// alarm number; 0 for chamber-wide parameters). Register-mapped controllers
// store Register entries, ASCII controllers store command tokens. Resolving a
// key that the model does not expose fails with chamber.ErrCapability.
//
// Register tables can be loaded from YAML with LoadRegisters:
//
//	name: watlow-f4 two channel
//	registers:
//	  - param: loop.setpoint
//	    index: 1
//	    address: 300
//	    type: int16
//	  - param: event
//	    index: 1
//	    address: 2000
package regmap

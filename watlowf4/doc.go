// Package watlowf4 drives the legacy Watlow F4 controller over Modbus RTU or
// Modbus TCP.
//
// The F4 has no built-in register table. Every register the driver touches is
// looked up in a regmap.Table loaded from YAML (see LoadMap and the sample in
// configs/watlowf4-map.yaml), and New fails with chamber.ErrCapability when
// the profile asks for a loop, cascade, event, limit or program feature that
// the map does not cover.
//
// The controller has up to two channels. A cascade, when present, is channel
// 1. Setpoints and process values are signed integers scaled by the decimal
// places configured for the channel input.
package watlowf4

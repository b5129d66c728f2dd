// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for file discovery, parsing, HCL-to-model
// translation and CTY-to-Go conversion of step options. It also embeds the
// default pipeline used when a project declares none.
package hcl

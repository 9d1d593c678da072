// Package config loads the TOML configuration file and keeps it current.
//
// A configuration file only needs the keys it changes; everything else
// comes from Default. Files may pull in other files with a top-level
// "@include" key, a string or an array of strings resolved relative to the
// including file. Included values have lower priority than the including
// file.
//
//	[model]
//	delay_after_typing = "250ms"
//
//	[surface]
//	zoom_controls = "auto_hide"
//
//	[theme]
//	name = "@style/dracula"
package config

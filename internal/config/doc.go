// Package config resolves axectl's directories and optional settings file.
//
// Settings live in an optional YAML file under the OS-appropriate config
// directory; a missing file yields defaults. The device cache lives under
// the OS cache directory. Both locations can be overridden by flags, and
// the loaded Config is passed explicitly to the code that needs it.
package config

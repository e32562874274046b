// Package ainav binds the native AiNav library (Recast, Detour and
// DetourCrowd behind a C ABI) as the "ainav" driver.
//
// The binding is only compiled with cgo and the ainav build tag, and links
// against libAiNav:
//
//	CGO_LDFLAGS=-L/path/to/lib go build -tags ainav ./...
//
// Without the tag importing this package registers nothing, so tools can
// import it unconditionally and select the driver through configuration.
package ainav

const DriverName = "ainav"

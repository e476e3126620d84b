// Global flags shared by packages that can not import cmd.
package flags

var (
	DumpHeaders = false
	DumpBodies  = false
	LogFile     = ""
)

package commands

// Verbosity is the count of -v flags on the root command. main binds the
// persistent flag to it before execution; commands read it when they need
// to re-initialize logging.
var Verbosity int

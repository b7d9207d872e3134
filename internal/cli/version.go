package cli

// Version is stamped by the release build; the default marks dev builds.
var Version = "0.1.0-dev"

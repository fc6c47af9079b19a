package version

// Version is replaced at build time with -ldflags "-X".
var Version = "dev"

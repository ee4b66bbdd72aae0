package version

// Version is the current version of the video-room CLI.
// Override at build time with:
//
//	go build -ldflags="-X 'github.com/anugrahthomas/video-room/internal/version.Version=v1.0.0'"
var Version = "dev"

package constant

// Set at build time with -ldflags "-X github.com/xeptore/ytmdl/constant.Version=...".
var (
	Version     = "dev"
	CompileTime = "unknown"
)

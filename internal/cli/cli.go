package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/vk/repobuild/internal/app"
	"github.com/vk/repobuild/internal/distsource"
	"github.com/vk/repobuild/internal/node"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// flags is the kong grammar of the command line.
type flags struct {
	Root      string   `short:"C" default:"." env:"REPOBUILD_ROOT" help:"Workspace root holding BUILD.hcl files."`
	Output    string   `short:"o" default:"Makefile" env:"REPOBUILD_OUTPUT" help:"Makefile to write in the root directory."`
	ObjDir    string   `name:"obj-dir" default:".gen-obj" help:"Workspace-relative directory for build outputs."`
	GenDir    string   `name:"gen-dir" default:".gen-files" help:"Workspace-relative directory for generated files."`
	LogLevel  string   `name:"log-level" default:"info" enum:"debug,info,warn,error" env:"REPOBUILD_LOG_LEVEL" help:"Logging level (${enum})."`
	LogFormat string   `name:"log-format" default:"text" enum:"text,json" env:"REPOBUILD_LOG_FORMAT" help:"Log output format (${enum})."`
	Targets   []string `arg:"" optional:"" name:"target" help:"Targets to generate rules for, e.g. //lib:foo. Defaults to all."`

	DistDir string `name:"dist-dir" env:"REPOBUILD_DIST_DIR" help:"Directory of unpacked dist sources, one per identifier."`

	S3 struct {
		Endpoint        string `name:"endpoint" env:"REPOBUILD_S3_ENDPOINT" help:"Object store endpoint for dist sources."`
		Bucket          string `name:"bucket" env:"REPOBUILD_S3_BUCKET" help:"Bucket holding <id>.tar.gz archives."`
		Prefix          string `name:"prefix" env:"REPOBUILD_S3_PREFIX" help:"Key prefix inside the bucket."`
		Region          string `name:"region" env:"REPOBUILD_S3_REGION" help:"Bucket region."`
		AccessKey       string `name:"access-key" env:"REPOBUILD_S3_ACCESS_KEY" help:"Access key."`
		SecretKey       string `name:"secret-key" env:"REPOBUILD_S3_SECRET_KEY" help:"Secret key."`
		SSL             bool   `name:"ssl" default:"true" negatable:"" env:"REPOBUILD_S3_SSL" help:"Use TLS."`
		StripComponents int    `name:"strip-components" default:"1" help:"Leading path elements dropped from archive entries."`
	} `embed:"" prefix:"s3-"`

	CC       string `name:"cc" env:"CC" help:"C compiler."`
	CXX      string `name:"cxx" env:"CXX" help:"C++ compiler."`
	AR       string `name:"ar" env:"AR" help:"Archiver."`
	CFLAGS   string `name:"cflags" env:"CFLAGS" help:"Default C compiler flags."`
	CXXFLAGS string `name:"cxxflags" env:"CXXFLAGS" help:"Default C++ compiler flags."`
	LDFLAGS  string `name:"ldflags" env:"LDFLAGS" help:"Default linker flags."`
	Prefix   string `name:"prefix" env:"PREFIX" help:"Default install prefix."`
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var f flags
	exited := false
	parser, err := kong.New(&f,
		kong.Name("repobuild"),
		kong.Description("Generates a Makefile from BUILD.hcl target declarations."),
		kong.Writers(output, output),
		kong.Exit(func(int) { exited = true }),
	)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	_, err = parser.Parse(args)
	if exited {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	config, err := app.NewConfig(app.Config{
		Root:      f.Root,
		Output:    f.Output,
		ObjDir:    f.ObjDir,
		GenDir:    f.GenDir,
		Targets:   f.Targets,
		LogFormat: strings.ToLower(f.LogFormat),
		LogLevel:  strings.ToLower(f.LogLevel),
		Toolchain: node.Toolchain{
			CC:       f.CC,
			CXX:      f.CXX,
			AR:       f.AR,
			CFLAGS:   f.CFLAGS,
			CXXFLAGS: f.CXXFLAGS,
			LDFLAGS:  f.LDFLAGS,
			Prefix:   f.Prefix,
		},
		DistDir: f.DistDir,
		ObjectStore: distsource.ObjectStoreConfig{
			Endpoint:        f.S3.Endpoint,
			Region:          f.S3.Region,
			AccessKey:       f.S3.AccessKey,
			SecretKey:       f.S3.SecretKey,
			Bucket:          f.S3.Bucket,
			Prefix:          f.S3.Prefix,
			UseSSL:          f.S3.SSL,
			StripComponents: f.S3.StripComponents,
		},
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

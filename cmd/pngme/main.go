package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/flaneur2020/pngme/pngme"
	pngerrors "github.com/flaneur2020/pngme/pngme/errors"
	"github.com/flaneur2020/pngme/pngme/logger"
	"github.com/flaneur2020/pngme/pngme/storage"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	logLevel     string
	verbose      bool
	showProgress bool
	output       string
	compress     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pngme",
		Short: "Hide, reveal and remove messages in PNG chunks",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogging()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: silent, error, warn, info or debug")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Shortcut for --log-level=info")
	rootCmd.PersistentFlags().BoolVar(&showProgress, "progress", false, "Show a progress bar while reading files")

	// encode command
	encodeCmd := &cobra.Command{
		Use:   "encode <FILE> <CHUNK_TYPE> <MESSAGE>",
		Short: "Append a chunk holding MESSAGE to a PNG file",
		Args:  cobra.ExactArgs(3),
		Run:   runEncode,
	}
	encodeCmd.Flags().StringVarP(&output, "output", "o", "", "Write the result here instead of overwriting FILE")
	addCompressionFlag(encodeCmd.Flags(), "Compress the message with zlib before storing it")

	// decode command
	decodeCmd := &cobra.Command{
		Use:   "decode <FILE> <CHUNK_TYPE>",
		Short: "Print the message stored in the first chunk of CHUNK_TYPE",
		Args:  cobra.ExactArgs(2),
		Run:   runDecode,
	}
	addCompressionFlag(decodeCmd.Flags(), "The message was stored zlib-compressed")

	// remove command
	removeCmd := &cobra.Command{
		Use:   "remove <FILE> <CHUNK_TYPE>",
		Short: "Remove the first chunk of CHUNK_TYPE from a PNG file",
		Args:  cobra.ExactArgs(2),
		Run:   runRemove,
	}

	// print command
	printCmd := &cobra.Command{
		Use:   "print <FILE>...",
		Short: "List the chunks of one or more PNG files",
		Args:  cobra.MinimumNArgs(1),
		Run:   runPrint,
	}

	rootCmd.AddCommand(encodeCmd, decodeCmd, removeCmd, printCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCompressionFlag(flags *pflag.FlagSet, usage string) {
	flags.BoolVarP(&compress, "zlib", "z", false, usage)
}

func configureLogging() error {
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	if verbose && level < logger.LogLevelInfo {
		level = logger.LogLevelInfo
	}
	logger.SetLogLevel(level)
	return nil
}

func newCommands() pngme.Commands {
	return pngme.NewCommands(storage.NewLocalStorage(""))
}

// progressCallback lazily creates a byte progress bar once the total is known.
// It returns nil, and a no-op finish, when --progress is off or debug logs
// are going to stderr.
func progressCallback(description string) (pngme.ProgressCallback, func()) {
	if !showProgress || logger.GetLogLevel() >= logger.LogLevelDebug {
		return nil, func() {}
	}

	var bar *progressbar.ProgressBar
	callback := func(current, total int64) {
		if bar == nil && total > 0 {
			bar = newProgressBar(total, description)
		}
		if bar != nil {
			bar.Set64(current)
		}
	}
	finish := func() {
		if bar != nil {
			bar.Finish()
		}
	}
	return callback, finish
}

// newProgressBar mirrors progressbar.DefaultBytes but draws on stderr so
// that decoded messages on stdout stay clean.
func newProgressBar(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(10),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Exit statuses by error code. Anything else exits with exitFailure.
const (
	exitFailure     = 1
	exitBadArgument = 2
	exitNotFound    = 3
	exitCorrupt     = 4
)

var exitStatusByCode = map[string]int{
	pngerrors.ErrInvalidChunkType.Code:         exitBadArgument,
	pngerrors.ErrImageNotFound.Code:            exitNotFound,
	pngerrors.ErrChunkNotFound.Code:            exitNotFound,
	pngerrors.ErrInvalidSignature.Code:         exitCorrupt,
	pngerrors.ErrBufferTooShort.Code:           exitCorrupt,
	pngerrors.ErrChecksumMismatch.Code:         exitCorrupt,
	pngerrors.ErrLengthMismatch.Code:           exitCorrupt,
	pngerrors.ErrInvalidUTF8.Code:              exitCorrupt,
	pngerrors.ErrInvalidCompressedPayload.Code: exitCorrupt,
}

func exitStatus(err error) int {
	if !pngerrors.IsPngError(err) {
		return exitFailure
	}
	if status, ok := exitStatusByCode[pngerrors.GetErrorCode(err)]; ok {
		return status
	}
	return exitFailure
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitStatus(err))
}

func runEncode(cmd *cobra.Command, args []string) {
	progress, finish := progressCallback(fmt.Sprintf("Reading %s", args[0]))

	desc, err := newCommands().Encode(context.Background(), pngme.EncodeArgs{
		Path:      args[0],
		ChunkType: args[1],
		Message:   args[2],
		Output:    output,
		Compress:  compress,
		Progress:  progress,
	})
	finish()
	if err != nil {
		fail(err)
	}

	fmt.Printf("Wrote %s (%d bytes, %s)\n", desc.Name, desc.Size, desc.Digest)
}

func runDecode(cmd *cobra.Command, args []string) {
	progress, finish := progressCallback(fmt.Sprintf("Reading %s", args[0]))

	message, err := newCommands().Decode(context.Background(), pngme.DecodeArgs{
		Path:       args[0],
		ChunkType:  args[1],
		Compressed: compress,
		Progress:   progress,
	})
	finish()
	if err != nil {
		fail(err)
	}

	fmt.Println(message)
}

func runRemove(cmd *cobra.Command, args []string) {
	progress, finish := progressCallback(fmt.Sprintf("Reading %s", args[0]))

	removed, err := newCommands().Remove(context.Background(), pngme.RemoveArgs{
		Path:      args[0],
		ChunkType: args[1],
		Progress:  progress,
	})
	finish()
	if err != nil {
		fail(err)
	}

	fmt.Printf("Removed %s from %s\n", removed, args[0])
}

func runPrint(cmd *cobra.Command, args []string) {
	progress, finish := progressCallback(fmt.Sprintf("Reading %d files", len(args)))

	summaries, err := newCommands().Print(context.Background(), pngme.PrintArgs{
		Paths:    args,
		Progress: progress,
	})
	finish()
	if err != nil {
		fail(err)
	}

	for _, s := range summaries {
		fmt.Printf("%s (size: %d bytes, digest: %s)\n", s.Name, s.Size, s.Digest)
		for i, c := range s.Chunks {
			fmt.Printf("%d: %s length=%d crc=0x%08x %s\n", i, c.Type, c.Length, c.CRC, chunkFlags(c))
		}
	}
}

func chunkFlags(c pngme.ChunkSummary) string {
	flags := ""
	if c.Critical {
		flags += "critical"
	} else {
		flags += "ancillary"
	}
	if c.Public {
		flags += ",public"
	} else {
		flags += ",private"
	}
	if c.SafeToCopy {
		flags += ",safe-to-copy"
	}
	if !c.Valid {
		flags += ",reserved-bit-set"
	}
	return flags
}

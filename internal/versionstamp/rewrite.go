package versionstamp

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"github.com/harrison/wsmaint/internal/filelock"
	"github.com/harrison/wsmaint/internal/models"
)

// attribute is a version attribute recognised at the start of a line.
type attribute struct {
	name    string
	pattern *regexp.Regexp
}

// Both attributes accept "N.N.N", "N.N.N.N" and "*" in the last two positions.
var attributes = []attribute{
	{
		name:    "AssemblyFileVersion",
		pattern: regexp.MustCompile(`^\[assembly: AssemblyFileVersion\("\d+\.\d+\.(\d+|\*)(\.(\d+|\*))?"\)\]`),
	},
	{
		name:    "AssemblyVersion",
		pattern: regexp.MustCompile(`^\[assembly: AssemblyVersion\("\d+\.\d+\.(\d+|\*)(\.(\d+|\*))?"\)\]`),
	},
}

// RewriteLines replaces every version attribute line in data with one stamped
// with v and returns the new content and the number of lines replaced.
// A replaced line keeps its own terminator; all other bytes are unchanged.
func RewriteLines(data []byte, v Version) ([]byte, int) {
	var out bytes.Buffer
	out.Grow(len(data))
	changed := 0

	for len(data) > 0 {
		end := bytes.IndexByte(data, '\n')
		var line []byte
		if end < 0 {
			line, data = data, nil
		} else {
			line, data = data[:end+1], data[end+1:]
		}

		content, terminator := splitTerminator(line)
		replaced := false
		for _, attr := range attributes {
			if attr.pattern.Match(content) {
				fmt.Fprintf(&out, "[assembly: %s(\"%s\")]", attr.name, v)
				out.Write(terminator)
				replaced = true
				changed++
				break
			}
		}
		if !replaced {
			out.Write(line)
		}
	}

	return out.Bytes(), changed
}

// splitTerminator separates a trailing "\n" or "\r\n" from line.
func splitTerminator(line []byte) (content, terminator []byte) {
	switch {
	case bytes.HasSuffix(line, []byte("\r\n")):
		return line[:len(line)-2], line[len(line)-2:]
	case bytes.HasSuffix(line, []byte("\n")):
		return line[:len(line)-1], line[len(line)-1:]
	default:
		return line, nil
	}
}

// Logger is the logging surface used by Rewriter.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
}

// Recorder receives one record per file handled.
type Recorder interface {
	Record(kind models.ActionKind, path string, status models.ActionStatus, detail string)
}

// Rewriter stamps a version into every file handed to Apply.
type Rewriter struct {
	Version  Version
	DryRun   bool
	Logger   Logger
	Recorder Recorder
}

// Apply rewrites the version attributes in the file at path. It satisfies the
// tree search action signature. Files without version attributes are left
// untouched.
func (r *Rewriter) Apply(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		r.record(path, models.ActionFailed, err.Error())
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		r.warn(fmt.Sprintf("Skipping %s: is a directory", path))
		r.record(path, models.ActionSkipped, "directory")
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		r.record(path, models.ActionFailed, err.Error())
		return fmt.Errorf("read %s: %w", path, err)
	}

	updated, changed := RewriteLines(data, r.Version)
	if changed == 0 {
		r.debug(fmt.Sprintf("No version attributes in %s", path))
		r.record(path, models.ActionSkipped, "no version attributes")
		return nil
	}

	if r.DryRun {
		r.info(fmt.Sprintf("Would update file %s to version %s (%d lines)", path, r.Version, changed))
		r.record(path, models.ActionDryRun, r.Version.String())
		return nil
	}

	r.info(fmt.Sprintf("Updating file %s to version %s", path, r.Version))
	if err := filelock.AtomicWrite(path, updated, info.Mode().Perm()); err != nil {
		r.record(path, models.ActionFailed, err.Error())
		return err
	}

	r.record(path, models.ActionOK, r.Version.String())
	return nil
}

func (r *Rewriter) record(path string, status models.ActionStatus, detail string) {
	if r.Recorder != nil {
		r.Recorder.Record(models.KindRewrite, path, status, detail)
	}
}

func (r *Rewriter) debug(msg string) {
	if r.Logger != nil {
		r.Logger.LogDebug(msg)
	}
}

func (r *Rewriter) info(msg string) {
	if r.Logger != nil {
		r.Logger.LogInfo(msg)
	}
}

func (r *Rewriter) warn(msg string) {
	if r.Logger != nil {
		r.Logger.LogWarn(msg)
	}
}

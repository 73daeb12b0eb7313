package batch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tphakala/wavenc/internal/errors"
)

// DefaultExtensions are the source extensions picked up from directories
var DefaultExtensions = []string{".wav", ".wave"}

// Job is one source file and where its MP3 goes
type Job struct {
	SourcePath      string
	DestinationPath string
}

// DiscoverOptions controls how command line inputs become jobs
type DiscoverOptions struct {
	Recursive  bool
	Extensions []string // lowercase with leading dot; empty selects DefaultExtensions
	OutputDir  string   // empty writes next to each source
	OutputExt  string   // with leading dot, ".mp3" when empty
	Overwrite  bool
}

// Skipped is an input left out before validation
type Skipped struct {
	Path   string
	Reason string
}

// Discover walks dir and returns the files whose extension matches exts,
// case-insensitively, sorted for a deterministic submission order. Without
// recursive only the top level is scanned.
func Discover(dir string, recursive bool, exts []string) ([]string, error) {
	allowed := extensionSet(exts)

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if allowed[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(err).
			Component("batch").
			Category(errors.CategoryFileIO).
			Context("operation", "discover").
			Context("directory", dir).
			Build()
	}
	sort.Strings(files)
	return files, nil
}

// BuildJobs expands files and directories into jobs. Explicitly named files
// are taken regardless of extension. Duplicates are dropped. A source whose
// destination is already claimed by an earlier source in the same run is
// skipped, and so are sources whose destination exists unless Overwrite is set.
func BuildJobs(inputs []string, opts DiscoverOptions) ([]Job, []Skipped, error) {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	outExt := opts.OutputExt
	if outExt == "" {
		outExt = ".mp3"
	}

	var (
		jobs    []Job
		skipped []Skipped
		seen    = make(map[string]bool)
		claimed = make(map[string]string) // destination -> first source
	)

	for _, input := range inputs {
		st, err := os.Stat(input)
		if err != nil {
			return nil, nil, errors.New(err).
				Component("batch").
				Category(errors.CategoryValidation).
				Context("input", input).
				Build()
		}

		root := filepath.Dir(input)
		sources := []string{input}
		if st.IsDir() {
			root = input
			if sources, err = Discover(input, opts.Recursive, exts); err != nil {
				return nil, nil, err
			}
		}

		for _, src := range sources {
			key := absPath(src)
			if seen[key] {
				continue
			}
			seen[key] = true

			dst := OutputPath(src, root, opts.OutputDir, outExt)
			dstKey := absPath(dst)
			if dstKey == key {
				skipped = append(skipped, Skipped{Path: src, Reason: "destination is the source"})
				continue
			}
			if first, ok := claimed[dstKey]; ok {
				skipped = append(skipped, Skipped{Path: src, Reason: "destination collides with " + first})
				continue
			}
			claimed[dstKey] = src

			if !opts.Overwrite && fileExists(dst) {
				skipped = append(skipped, Skipped{Path: src, Reason: "destination exists: " + dst})
				continue
			}
			jobs = append(jobs, Job{SourcePath: src, DestinationPath: dst})
		}
	}

	return jobs, skipped, nil
}

// OutputPath derives the destination for src. With an output directory the
// path of src relative to root is kept below it; otherwise the destination
// sits next to the source. The extension is replaced by ext.
func OutputPath(src, root, outputDir, ext string) string {
	if outputDir == "" {
		return replaceExt(src, ext)
	}

	rel, err := filepath.Rel(root, src)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = filepath.Base(src)
	}
	return filepath.Join(outputDir, replaceExt(rel, ext))
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func extensionSet(exts []string) map[string]bool {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return set
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

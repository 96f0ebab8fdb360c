package rirstat

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Source is a published delegation file.
type Source struct {
	Name string
	URL  string
}

// Sources lists the delegation files of the five RIRs and IANA under the
// names they are published with.
var Sources = []Source{
	{"delegated-arin-extended-latest", "https://ftp.arin.net/pub/stats/arin/delegated-arin-extended-latest"},
	{"delegated-ripencc-latest", "https://ftp.ripe.net/pub/stats/ripencc/delegated-ripencc-latest"},
	{"delegated-ripencc-extended-latest", "https://ftp.ripe.net/pub/stats/ripencc/delegated-ripencc-extended-latest"},
	{"delegated-apnic-latest", "https://ftp.apnic.net/stats/apnic/delegated-apnic-latest"},
	{"delegated-apnic-extended-latest", "https://ftp.apnic.net/stats/apnic/delegated-apnic-extended-latest"},
	{"delegated-lacnic-latest", "http://ftp.lacnic.net/pub/stats/lacnic/delegated-lacnic-latest"},
	{"delegated-lacnic-extended-latest", "http://ftp.lacnic.net/pub/stats/lacnic/delegated-lacnic-extended-latest"},
	{"delegated-afrinic-latest", "https://ftp.afrinic.net/pub/stats/afrinic/delegated-afrinic-latest"},
	{"delegated-afrinic-extended-latest", "https://ftp.afrinic.net/pub/stats/afrinic/delegated-afrinic-extended-latest"},
	{"delegated-iana-latest", "https://ftp.apnic.net/stats/iana/delegated-iana-latest"},
}

// SourceNames returns the file names of Sources.
func SourceNames() []string {
	names := make([]string, len(Sources))
	for i, s := range Sources {
		names[i] = s.Name
	}
	return names
}

// SourceURL returns the download location of the named file.
func SourceURL(name string) (string, bool) {
	for _, s := range Sources {
		if s.Name == name {
			return s.URL, true
		}
	}
	return "", false
}

// parallelism bounds the number of files parsed at once.
const parallelism = 4

// Load parses the named files under dir and merges their records. A nil
// names loads SourceNames. Files that are missing or are not regular files
// are logged and skipped; a file that cannot be read fails the load.
func Load(ctx context.Context, afs afero.Fs, dir string, names []string) (RecordSet, error) {
	if names == nil {
		names = SourceNames()
	}

	files := make([]*File, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := loadFile(afs, dir, name)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := NewRecordSet()
	for i, f := range files {
		if f == nil {
			continue
		}
		added := set.AddAll(f.Records)
		log.WithFields(log.Fields{
			"file":     names[i],
			"records":  len(f.Records),
			"new":      added,
			"skipped":  f.Skipped,
			"rejected": f.Rejected,
		}).Info("rirstat: loaded")
	}
	return set, nil
}

func loadFile(afs afero.Fs, dir, name string) (*File, error) {
	path := filepath.Join(dir, name)
	fi, err := afs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			entry := log.WithField("path", path)
			if url, ok := SourceURL(name); ok {
				entry = entry.WithField("url", url)
			}
			entry.Warn("rirstat: file does not exist, skipping")
			return nil, nil
		}
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	if !fi.Mode().IsRegular() {
		log.WithField("path", path).Warn("rirstat: not a regular file, skipping")
		return nil, nil
	}

	r, err := afs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer r.Close()

	f, err := Parse(r)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return f, nil
}

package fs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

type skip struct {
	action godirwalk.ErrorAction
}

func (skip) Error() string {
	return "node is skipped"
}

// WalkFunc is invoked for each regular file encountered in a walk, with its
// solidus delimited path relative to the root of the walk, and its absolute path.
type WalkFunc func(relpath, abspath string) error

// Walk visits every regular file underneath the given directory.  Hidden files
// and directories (names starting with a '.'), which includes in-progress atomic
// writes, are skipped.  Any error returned by f terminates the walk.
func Walk(dir string, f WalkFunc) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return errors.Wrapf(err, "could not calculate absolute path of %s", dir)
	}

	if _, err := os.Stat(root); err != nil {
		return errors.Wrapf(err, "error walking directory %s", root)
	}

	return godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(ospath string, dirent *godirwalk.Dirent) error {
			if ospath != root && strings.HasPrefix(dirent.Name(), ".") {
				return skip{godirwalk.SkipNode}
			}

			if !dirent.IsRegular() {
				return nil
			}

			rel, err := filepath.Rel(root, ospath)
			if err != nil {
				return errors.Wrapf(err, "could not relativize %s", ospath)
			}

			if err := f(filepath.ToSlash(rel), ospath); err != nil {
				return errors.Wrap(err, "terminating walk due to error")
			}
			return nil
		},
		ErrorCallback: func(ospath string, err error) godirwalk.ErrorAction {
			s, skip := errors.Cause(err).(skip)
			if skip {
				return s.action
			}

			return godirwalk.Halt
		},
		FollowSymbolicLinks: true,
	},
	)
}

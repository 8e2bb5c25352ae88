package download

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"ipofetch/internal/common"
)

// PreconditionError reports an environment problem detected before any
// download starts. Nothing has been written when it is returned.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

// checkPreconditions verifies the output directory is writable and the
// filesystem has room for a full document before any chapter launches.
func checkPreconditions(dir string, minFreeBytes int64) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &PreconditionError{Reason: fmt.Sprintf("output directory %s: %v", dir, err)}
	}

	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return &PreconditionError{Reason: fmt.Sprintf("statfs %s: %v", dir, err)}
	}
	free := int64(st.Bavail) * st.Bsize
	if minFreeBytes > 0 && free < minFreeBytes {
		return &PreconditionError{Reason: fmt.Sprintf("insufficient disk space: %s free, need %s",
			common.FormatFileSize(free), common.FormatFileSize(minFreeBytes))}
	}
	return nil
}

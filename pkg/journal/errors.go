package journal

import "errors"

// Sentinel errors for the journal's named failure kinds. Wrapped I/O
// failures use fmt.Errorf("...: %w", err) against the underlying os/io
// error rather than one of these.
var (
	// ErrTooManyBytes is returned by append when a single record is
	// larger than the store's configured file_data_size.
	ErrTooManyBytes = errors.New("journal: record larger than segment data size")

	// ErrPositionUnderflow is returned by read when position < min().
	ErrPositionUnderflow = errors.New("journal: read position below store minimum")

	// ErrPositionOverflow is returned by read when position >= max().
	ErrPositionOverflow = errors.New("journal: read position at or beyond store maximum")

	// ErrCorruptedStore is returned by recover when the segment set on
	// disk is not contiguous.
	ErrCorruptedStore = errors.New("journal: corrupted store, segments are not contiguous")

	// ErrDiskFull is returned by append when there is not enough free
	// space to create a new segment.
	ErrDiskFull = errors.New("journal: insufficient free disk space for new segment")

	// ErrUnsupported is returned by mutating operations on an
	// ImmutableStore.
	ErrUnsupported = errors.New("journal: operation unsupported on immutable store")

	// ErrIllegalArgument is returned for out-of-range truncate/compact
	// arguments or a wrongly-named appendFile source.
	ErrIllegalArgument = errors.New("journal: illegal argument")
)

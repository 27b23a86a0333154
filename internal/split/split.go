// Package split partitions the merged dataset into chronological train,
// tune, and test slices so that evaluation never sees the past.
package split

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/domain"
)

// ErrDegenerateSplit indicates the dataset is too small for the requested
// fractions, leaving at least one slice empty.
var ErrDegenerateSplit = errors.New("degenerate split")

// Slices holds the three chronological partitions of the dataset.
type Slices struct {
	Train []domain.MergedSession
	Tune  []domain.MergedSession
	Test  []domain.MergedSession
}

// Chronological sorts the sessions by start time (stable, so equal
// timestamps keep their input order) and cuts them into train, tune, and
// test slices of floor(trainFrac*N), floor(tuneFrac*N), and the remainder.
// The input slice is not modified.
func Chronological(sessions []domain.MergedSession, trainFrac, tuneFrac float64) (*Slices, error) {
	n := len(sessions)
	ordered := make([]domain.MergedSession, n)
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start.Before(ordered[j].Start)
	})

	nTrain := int(math.Floor(trainFrac * float64(n)))
	nTune := int(math.Floor(tuneFrac * float64(n)))
	nTest := n - nTrain - nTune
	if nTrain <= 0 || nTune <= 0 || nTest <= 0 {
		return nil, fmt.Errorf("%w: %d rows yield train=%d tune=%d test=%d",
			ErrDegenerateSplit, n, nTrain, nTune, nTest)
	}

	return &Slices{
		Train: ordered[:nTrain],
		Tune:  ordered[nTrain : nTrain+nTune],
		Test:  ordered[nTrain+nTune:],
	}, nil
}

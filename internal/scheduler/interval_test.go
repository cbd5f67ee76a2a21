package scheduler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

func mustInterval(t *testing.T, start, end string) Interval {
	t.Helper()
	iv, err := NewInterval(start, end)
	require.NoError(t, err)
	return iv
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("09:05")
	require.NoError(t, err)
	assert.Equal(t, 545, m)

	m, err = ParseClock("10:00")
	require.NoError(t, err)
	assert.Equal(t, 600, m)

	_, err = ParseClock("25:00")
	assert.Error(t, err)

	_, err = ParseClock("9am")
	assert.Error(t, err)
}

func TestNewInterval_RejectsEmptyOrReversed(t *testing.T) {
	_, err := NewInterval("10:00", "10:00")
	assert.True(t, errors.Is(err, domain.ErrInvalidTime))

	_, err = NewInterval("12:00", "10:00")
	assert.True(t, errors.Is(err, domain.ErrInvalidTime))

	_, err = NewInterval("ab:cd", "10:00")
	assert.True(t, errors.Is(err, domain.ErrInvalidTime))
}

func TestInterval_Overlaps(t *testing.T) {
	tests := []struct {
		name     string
		a, b     [2]string
		overlaps bool
	}{
		{"candidate start inside existing", [2]string{"09:00", "11:00"}, [2]string{"10:30", "12:00"}, true},
		{"candidate end inside existing", [2]string{"09:00", "11:00"}, [2]string{"08:00", "09:30"}, true},
		{"existing contained in candidate", [2]string{"09:00", "11:00"}, [2]string{"08:00", "12:00"}, true},
		{"identical", [2]string{"09:00", "11:00"}, [2]string{"09:00", "11:00"}, true},
		{"back to back after", [2]string{"09:00", "11:00"}, [2]string{"11:00", "12:30"}, false},
		{"back to back before", [2]string{"09:00", "11:00"}, [2]string{"07:50", "09:00"}, false},
		{"disjoint", [2]string{"09:00", "10:00"}, [2]string{"14:00", "17:00"}, false},
		{"hour boundary compared numerically", [2]string{"09:05", "10:00"}, [2]string{"09:50", "10:30"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustInterval(t, tt.a[0], tt.a[1])
			b := mustInterval(t, tt.b[0], tt.b[1])
			assert.Equal(t, tt.overlaps, a.Overlaps(b))
			assert.Equal(t, tt.overlaps, b.Overlaps(a), "overlap must be symmetric")
		})
	}
}

func TestInterval_OverlapsMatchesHalfOpenRule(t *testing.T) {
	// 在一天内按 30 分钟粒度枚举所有区间对
	for s1 := 0; s1 < 24*60; s1 += 90 {
		for e1 := s1 + 30; e1 <= 24*60; e1 += 150 {
			for s2 := 0; s2 < 24*60; s2 += 120 {
				for e2 := s2 + 30; e2 <= 24*60; e2 += 210 {
					a := Interval{Start: s1, End: e1}
					b := Interval{Start: s2, End: e2}
					assert.Equal(t, s1 < e2 && s2 < e1, a.Overlaps(b))
				}
			}
		}
	}
}

func TestInterval_String(t *testing.T) {
	iv := mustInterval(t, "7:50", "10:00")
	assert.Equal(t, "07:50-10:00", iv.String())
}

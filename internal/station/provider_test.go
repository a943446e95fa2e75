package station

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/duct-correlation-service/internal/domain"
)

type stubFetcher struct {
	body []byte
	err  error
	urls []string
}

func (f *stubFetcher) Get(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.body, f.err
}

func TestProvider_Directory(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(clockwork.NewRealClock()) })

	list := strings.Join([]string{
		stationLine("ITM00016044", 46.0347, 13.1869, 2026),
		stationLine("ITM00016080", 45.4342, 9.2811, 2020),
	}, "\n")
	fetcher := &stubFetcher{body: []byte(list)}
	p := NewProvider(fetcher, "http://example.test/igra2-station-list.txt", discardLogger())

	dir, err := p.Directory(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, dir.Len())
	assert.Equal(t, []string{"http://example.test/igra2-station-list.txt"}, fetcher.urls)
}

func TestProvider_Directory_FetchFailure(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	p := NewProvider(fetcher, "http://example.test/list.txt", discardLogger())

	dir, err := p.Directory(context.Background())

	require.Error(t, err)
	assert.Equal(t, 0, dir.Len())
}

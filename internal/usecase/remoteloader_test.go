package usecase

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"feedloader/internal/adapter/parser"
	"feedloader/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTimeout = time.Second
	testTick    = 10 * time.Millisecond
)

type httpMessage struct {
	url        string
	completion HTTPCompletion
}

type httpClientSpy struct {
	mu       sync.Mutex
	messages []httpMessage
}

func (s *httpClientSpy) Get(u *url.URL, completion HTTPCompletion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, httpMessage{url: u.String(), completion: completion})
}

func (s *httpClientSpy) requestedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls := make([]string, 0, len(s.messages))
	for _, m := range s.messages {
		urls = append(urls, m.url)
	}
	return urls
}

func (s *httpClientSpy) message(index int) httpMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[index]
}

func (s *httpClientSpy) completeWithError(err error, index int) {
	s.message(index).completion(domain.RawResponse{}, err)
}

func (s *httpClientSpy) completeWithStatus(code int, data []byte, index int) {
	s.message(index).completion(domain.RawResponse{Data: data, StatusCode: code}, nil)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeSUT(t *testing.T, rawURL string) (*RemoteFeedLoader, *httpClientSpy) {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	client := &httpClientSpy{}
	return NewRemoteFeedLoader(u, client, parser.MapItems, discardLogger()), client
}

func strPtr(s string) *string { return &s }

func makeItem(t *testing.T, id uuid.UUID, location, description *string, imageURL string) (domain.FeedItem, map[string]any) {
	t.Helper()
	u, err := url.Parse(imageURL)
	require.NoError(t, err)
	item := domain.NewFeedItem(id, location, description, *u)
	j := map[string]any{"id": id.String(), "image": imageURL}
	if location != nil {
		j["location"] = *location
	}
	if description != nil {
		j["description"] = *description
	}
	return item, j
}

func makeItemsJSON(t *testing.T, items ...map[string]any) []byte {
	t.Helper()
	if items == nil {
		items = []map[string]any{}
	}
	data, err := json.Marshal(map[string]any{"items": items})
	require.NoError(t, err)
	return data
}

// expectLoad вызывает Load, выполняет action и проверяет единственный результат.
func expectLoad(t *testing.T, sut *RemoteFeedLoader, expected domain.LoadResult, action func()) {
	t.Helper()
	var received []domain.LoadResult
	sut.Load(func(r domain.LoadResult) { received = append(received, r) })

	action()

	require.Len(t, received, 1)
	if expected.Err != nil {
		assert.ErrorIs(t, received[0].Err, expected.Err)
		assert.Nil(t, received[0].Items)
		return
	}
	require.NoError(t, received[0].Err)
	assert.Equal(t, expected.Items, received[0].Items)
}

func TestRemoteFeedLoader_InitDoesNotRequestData(t *testing.T) {
	_, client := makeSUT(t, "http://a-url.com")

	assert.Empty(t, client.requestedURLs())
}

func TestRemoteFeedLoader_LoadRequestsDataFromURL(t *testing.T) {
	sut, client := makeSUT(t, "http://a-given-url.com")

	sut.Load(func(domain.LoadResult) {})

	assert.Equal(t, []string{"http://a-given-url.com"}, client.requestedURLs())
}

func TestRemoteFeedLoader_LoadTwiceRequestsDataTwice(t *testing.T) {
	sut, client := makeSUT(t, "http://a-given-url.com")

	sut.Load(func(domain.LoadResult) {})
	sut.Load(func(domain.LoadResult) {})

	assert.Equal(t, []string{"http://a-given-url.com", "http://a-given-url.com"}, client.requestedURLs())
}

func TestRemoteFeedLoader_DeliversConnectivityErrorOnClientError(t *testing.T) {
	sut, client := makeSUT(t, "http://a-url.com")

	expectLoad(t, sut, domain.Failure(domain.ErrConnectivity), func() {
		client.completeWithError(errors.New("dial tcp: connection refused"), 0)
	})
}

func TestRemoteFeedLoader_DoesNotLeakTransportError(t *testing.T) {
	sut, client := makeSUT(t, "http://a-url.com")
	transportErr := errors.New("tls: handshake failure")

	var result domain.LoadResult
	sut.Load(func(r domain.LoadResult) { result = r })
	client.completeWithError(transportErr, 0)

	assert.Equal(t, domain.ErrConnectivity, result.Err)
	assert.NotErrorIs(t, result.Err, transportErr)
}

func TestRemoteFeedLoader_DeliversInvalidDataOnNon200Response(t *testing.T) {
	sut, client := makeSUT(t, "http://a-url.com")

	for index, code := range []int{199, 201, 300, 400, 500} {
		expectLoad(t, sut, domain.Failure(domain.ErrInvalidData), func() {
			client.completeWithStatus(code, makeItemsJSON(t), index)
		})
	}
}

func TestRemoteFeedLoader_DeliversInvalidDataOn200WithInvalidJSON(t *testing.T) {
	sut, client := makeSUT(t, "http://a-url.com")

	expectLoad(t, sut, domain.Failure(domain.ErrInvalidData), func() {
		client.completeWithStatus(200, []byte("invalid json"), 0)
	})
}

func TestRemoteFeedLoader_DeliversNoItemsOn200WithEmptyList(t *testing.T) {
	sut, client := makeSUT(t, "http://a-url.com")

	expectLoad(t, sut, domain.Success([]domain.FeedItem{}), func() {
		client.completeWithStatus(200, makeItemsJSON(t), 0)
	})
}

func TestRemoteFeedLoader_DeliversItemsOn200WithItems(t *testing.T) {
	sut, client := makeSUT(t, "http://a-url.com")
	item1, json1 := makeItem(t, uuid.New(), nil, nil, "http://an-image-url")
	item2, json2 := makeItem(t, uuid.New(), strPtr("a location"), strPtr("a description"), "http://another-image-url")

	expectLoad(t, sut, domain.Success([]domain.FeedItem{item1, item2}), func() {
		client.completeWithStatus(200, makeItemsJSON(t, json1, json2), 0)
	})
}

func TestRemoteFeedLoader_ExampleScenario(t *testing.T) {
	sut, client := makeSUT(t, "http://x/feed")
	item, _ := makeItem(t, uuid.MustParse("73A7F70C-75DA-4C2E-B5A3-EED40DC53AA6"), strPtr("l1"), strPtr("d1"), "https://url-1.com")
	body := `{"items":[{"id":"73A7F70C-75DA-4C2E-B5A3-EED40DC53AA6","image":"https://url-1.com","description":"d1","location":"l1"}]}`

	expectLoad(t, sut, domain.Success([]domain.FeedItem{item}), func() {
		client.completeWithStatus(200, []byte(body), 0)
	})
	assert.Equal(t, []string{"http://x/feed"}, client.requestedURLs())
}

func TestRemoteFeedLoader_DoesNotDeliverAfterClose(t *testing.T) {
	sut, client := makeSUT(t, "http://a-url.com")

	var received []domain.LoadResult
	sut.Load(func(r domain.LoadResult) { received = append(received, r) })
	sut.Close()
	client.completeWithStatus(200, makeItemsJSON(t), 0)
	client.completeWithError(errors.New("late"), 0)

	assert.Empty(t, received)
}

func TestRemoteFeedLoader_LoadAfterCloseIssuesNoRequest(t *testing.T) {
	sut, client := makeSUT(t, "http://a-url.com")
	sut.Close()

	called := false
	sut.Load(func(domain.LoadResult) { called = true })

	assert.Empty(t, client.requestedURLs())
	assert.False(t, called)
}

func TestRemoteFeedLoader_DeliversOnceWhenTransportCompletesTwice(t *testing.T) {
	sut, client := makeSUT(t, "http://a-url.com")

	var received []domain.LoadResult
	sut.Load(func(r domain.LoadResult) { received = append(received, r) })
	client.completeWithStatus(200, makeItemsJSON(t), 0)
	client.completeWithError(errors.New("second"), 0)

	require.Len(t, received, 1)
	assert.NoError(t, received[0].Err)
}

func TestRemoteFeedLoader_ConcurrentLoadsCompleteIndependently(t *testing.T) {
	sut, client := makeSUT(t, "http://a-url.com")
	const n = 20

	var mu sync.Mutex
	var successes, failures int
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go sut.Load(func(r domain.LoadResult) {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			if r.Err != nil {
				failures++
				return
			}
			successes++
		})
	}
	require.Eventually(t, func() bool { return len(client.requestedURLs()) == n }, testTimeout, testTick)

	emptyJSON := makeItemsJSON(t)
	for i := 0; i < n; i++ {
		go func(index int) {
			if index%2 == 0 {
				client.completeWithStatus(200, emptyJSON, index)
				return
			}
			client.completeWithError(errors.New("offline"), index)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n/2, successes)
	assert.Equal(t, n/2, failures)
}

func TestRemoteFeedLoader_PassesResponseToInjectedMapper(t *testing.T) {
	u, err := url.Parse("https://a-given-url.com")
	require.NoError(t, err)
	client := &httpClientSpy{}
	var gotData []byte
	var gotStatus int
	mapper := func(data []byte, statusCode int) ([]domain.FeedItem, error) {
		gotData, gotStatus = data, statusCode
		return nil, errors.New("mapper rejected payload")
	}
	sut := NewRemoteFeedLoader(u, client, mapper, discardLogger())

	expectLoad(t, sut, domain.Failure(domain.ErrInvalidData), func() {
		client.completeWithStatus(203, []byte("payload"), 0)
	})
	assert.Equal(t, []byte("payload"), gotData)
	assert.Equal(t, 203, gotStatus)
}

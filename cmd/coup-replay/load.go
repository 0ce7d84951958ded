package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"coup-lite/replay"
)

// historyEntry mirrors the fields of a stored match the viewer needs.
type historyEntry struct {
	MatchID    string          `json:"matchId"`
	Room       string          `json:"room"`
	PlayedAt   time.Time       `json:"playedAt"`
	Winner     string          `json:"winner"`
	WinnerName string          `json:"winnerName"`
	Steps      int             `json:"steps"`
	Tape       json.RawMessage `json:"tape,omitempty"`
	Script     json.RawMessage `json:"script,omitempty"`
}

var errUnknownFormat = errors.New("file is neither a tape, a history entry nor a script")

// loadFile accepts a wire tape, a stored history entry, or a script that is
// regenerated.
func loadFile(path string) (*replay.Tape, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeAny(data)
}

func decodeAny(data []byte) (*replay.Tape, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	switch {
	case probe["tapeVersion"] != nil:
		return replay.UnmarshalTape(data)
	case probe["tape"] != nil:
		var rec historyEntry
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		return replay.UnmarshalTape(rec.Tape)
	case probe["inputs"] != nil:
		var script replay.Script
		if err := json.Unmarshal(data, &script); err != nil {
			return nil, fmt.Errorf("decode script: %w", err)
		}
		return replay.Generate(script)
	default:
		return nil, errUnknownFormat
	}
}

type historyClient struct {
	base string
	http *http.Client
}

func newHistoryClient(base string) *historyClient {
	return &historyClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *historyClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("GET %s: %s", path, e.Error)
	}
	return json.Unmarshal(body, out)
}

func (c *historyClient) recent(ctx context.Context, limit int) ([]historyEntry, error) {
	var out struct {
		Items []historyEntry `json:"items"`
	}
	if err := c.get(ctx, fmt.Sprintf("/api/history/recent?limit=%d", limit), &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *historyClient) match(ctx context.Context, matchID string) (*replay.Tape, error) {
	var rec historyEntry
	if err := c.get(ctx, "/api/history/matches/"+url.PathEscape(matchID), &rec); err != nil {
		return nil, err
	}
	if len(rec.Tape) == 0 {
		return nil, fmt.Errorf("match %s has no tape", matchID)
	}
	return replay.UnmarshalTape(rec.Tape)
}

package plurality

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is the REST client against SP's API (spec §6). One is created per
// user (or per the admin sibling) carrying that caller's bearer token.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	Token   string
}

// NewClient builds a Client with the given per-request timeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: timeout},
		BaseURL: baseURL,
		Token:   token,
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.Token)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("plurality: GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("plurality: GET %s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type frontEntryWire struct {
	ID      string `json:"id"`
	Content struct {
		UID       string `json:"uid"`
		Member    string `json:"member"`
		Custom    bool   `json:"custom"`
		StartTime int64  `json:"startTime"`
		Live      bool   `json:"live"`
	} `json:"content"`
}

// FetchFronts returns the currently active front entries.
func (c *Client) FetchFronts(ctx context.Context) ([]FrontEntry, error) {
	var wire []frontEntryWire
	if err := c.get(ctx, "/fronters", &wire); err != nil {
		return nil, err
	}
	out := make([]FrontEntry, 0, len(wire))
	for _, w := range wire {
		out = append(out, FrontEntry{
			ID:        w.ID,
			SystemID:  w.Content.UID,
			FronterID: w.Content.Member,
			Custom:    w.Content.Custom,
			StartTime: time.UnixMilli(w.Content.StartTime),
			Live:      w.Content.Live,
		})
	}
	return out, nil
}

type memberWire struct {
	ID      string `json:"id"`
	Content struct {
		Name                string            `json:"name"`
		AvatarURL            string            `json:"avatarUrl"`
		Archived             bool              `json:"archived"`
		PreventsFrontNotifs  bool              `json:"preventsFrontNotifs"`
		PrivacyBuckets       []string          `json:"privacyBuckets"`
		Info                 map[string]string `json:"info"`
	} `json:"content"`
}

// FetchMembers returns every member of systemID.
func (c *Client) FetchMembers(ctx context.Context, systemID string) ([]Member, error) {
	var wire []memberWire
	if err := c.get(ctx, "/members/"+systemID, &wire); err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(wire))
	for _, w := range wire {
		out = append(out, Member{
			ID:                  w.ID,
			Name:                w.Content.Name,
			AvatarURL:           w.Content.AvatarURL,
			Archived:            w.Content.Archived,
			PreventsFrontNotifs: w.Content.PreventsFrontNotifs,
			PrivacyBuckets:      w.Content.PrivacyBuckets,
			Info:                w.Content.Info,
		})
	}
	return out, nil
}

type customFrontWire struct {
	ID      string `json:"id"`
	Content struct {
		Name           string   `json:"name"`
		AvatarURL      string   `json:"avatarUrl"`
		PrivacyBuckets []string `json:"privacyBuckets"`
	} `json:"content"`
}

// FetchCustomFronts returns every custom front of systemID.
func (c *Client) FetchCustomFronts(ctx context.Context, systemID string) ([]CustomFront, error) {
	var wire []customFrontWire
	if err := c.get(ctx, "/customFronts/"+systemID, &wire); err != nil {
		return nil, err
	}
	out := make([]CustomFront, 0, len(wire))
	for _, w := range wire {
		out = append(out, CustomFront{
			ID:             w.ID,
			Name:           w.Content.Name,
			AvatarURL:      w.Content.AvatarURL,
			PrivacyBuckets: w.Content.PrivacyBuckets,
		})
	}
	return out, nil
}

type customFieldWire struct {
	ID      string `json:"id"`
	Content struct {
		Name string `json:"name"`
	} `json:"content"`
}

// FetchCustomFields returns every custom field definition of systemID.
func (c *Client) FetchCustomFields(ctx context.Context, systemID string) ([]CustomField, error) {
	var wire []customFieldWire
	if err := c.get(ctx, "/customFields/"+systemID, &wire); err != nil {
		return nil, err
	}
	out := make([]CustomField, 0, len(wire))
	for _, w := range wire {
		out = append(out, CustomField{ID: w.ID, Name: w.Content.Name})
	}
	return out, nil
}

type friendWire struct {
	ID      string `json:"id"`
	Content struct {
		AssignedPrivacyBuckets []string `json:"assignedPrivacyBuckets"`
	} `json:"content"`
}

// FetchFriend returns the friend record linking systemID to theirUserID
// (used by the ViaFriend privacy mode).
func (c *Client) FetchFriend(ctx context.Context, systemID, theirUserID string) (Friend, error) {
	var w friendWire
	if err := c.get(ctx, "/friend/"+systemID+"/"+theirUserID, &w); err != nil {
		return Friend{}, err
	}
	return Friend{ID: w.ID, AssignedPrivacyBuckets: w.Content.AssignedPrivacyBuckets}, nil
}

type friendRequestWire struct {
	ID string `json:"id"`
}

// FetchIncomingFriendRequests returns every friend request awaiting a
// response from this token's system.
func (c *Client) FetchIncomingFriendRequests(ctx context.Context) ([]FriendRequest, error) {
	var wire []friendRequestWire
	if err := c.get(ctx, "/friends/requests/incoming", &wire); err != nil {
		return nil, err
	}
	out := make([]FriendRequest, 0, len(wire))
	for _, w := range wire {
		out = append(out, FriendRequest{FromUserID: w.ID})
	}
	return out, nil
}

// AcceptAllFriendRequests fetches every pending incoming friend request and
// accepts each, used by the friend-request auto-accepter sibling so any
// system that grants SP2Any friendship becomes eligible for the ViaFriend
// privacy mode without a human clicking "accept".
func (c *Client) AcceptAllFriendRequests(ctx context.Context) error {
	requests, err := c.FetchIncomingFriendRequests(ctx)
	if err != nil {
		return fmt.Errorf("plurality: fetch incoming friend requests: %w", err)
	}
	for _, req := range requests {
		if err := c.RespondFriendRequest(ctx, req.FromUserID, true); err != nil {
			return err
		}
	}
	return nil
}

// RespondFriendRequest accepts (or, if accepted=false, declines) a pending
// friend request, used by the friend-request auto-accepter sibling.
func (c *Client) RespondFriendRequest(ctx context.Context, requestID string, accepted bool) error {
	body, _ := json.Marshal(map[string]any{
		"settings": map[string]bool{
			"seeMembers":    false,
			"seeFront":      false,
			"getFrontNotif": false,
		},
	})
	url := fmt.Sprintf("%s/friends/request/respond/%s?accepted=%t", c.BaseURL, requestID, accepted)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.Token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("plurality: respond friend request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("plurality: respond friend request: status %d", resp.StatusCode)
	}
	return nil
}

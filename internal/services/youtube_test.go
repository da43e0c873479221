package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/shared"
)

func newTestYouTubeService(t *testing.T, handler http.HandlerFunc) *YouTubeService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := shared.YouTubeConfig{APIKey: "key", APIBaseURL: server.URL}
	return NewYouTubeService(cfg, server.Client(), shared.NewLogger(&bytes.Buffer{}))
}

func TestYouTubeService(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		svc := NewYouTubeService(shared.YouTubeConfig{}, nil, nil)
		if svc.api.baseURL != youtubeBaseURL {
			t.Errorf("expected default base URL, got %s", svc.api.baseURL)
		}
		if svc.Name() != "YouTube" {
			t.Errorf("expected service name 'YouTube', got %s", svc.Name())
		}
	})

	t.Run("SearchVideo", func(t *testing.T) {
		t.Run("First Result", func(t *testing.T) {
			svc := newTestYouTubeService(t, func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if r.URL.Path != "/search" {
					t.Errorf("expected /search, got %s", r.URL.Path)
				}
				if q.Get("part") != "snippet" || q.Get("type") != "video" || q.Get("maxResults") != "1" {
					t.Errorf("unexpected search params %v", q)
				}
				if q.Get("q") != "Song A Artist X" || q.Get("key") != "key" {
					t.Errorf("unexpected query or key %v", q)
				}
				fmt.Fprint(w, `{"items":[{"id":{"kind":"youtube#video","videoId":"vid1"}}]}`)
			})

			id, found, err := svc.SearchVideo(context.Background(), "Song A Artist X")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !found || id != "vid1" {
				t.Errorf("expected vid1, got %q (found=%v)", id, found)
			}
		})

		t.Run("No Results", func(t *testing.T) {
			svc := newTestYouTubeService(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"items":[]}`)
			})

			_, found, err := svc.SearchVideo(context.Background(), "nothing")
			if err != nil || found {
				t.Errorf("expected not found without error, got found=%v err=%v", found, err)
			}
		})

		t.Run("Missing Items", func(t *testing.T) {
			svc := newTestYouTubeService(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"kind":"youtube#searchListResponse"}`)
			})

			_, found, err := svc.SearchVideo(context.Background(), "q")
			if err != nil || found {
				t.Errorf("expected not found without error, got found=%v err=%v", found, err)
			}
		})

		t.Run("Malformed Response", func(t *testing.T) {
			svc := newTestYouTubeService(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `<html>`)
			})

			_, found, err := svc.SearchVideo(context.Background(), "q")
			if err != nil || found {
				t.Errorf("expected not found without error, got found=%v err=%v", found, err)
			}
		})

		t.Run("Item Without Video ID", func(t *testing.T) {
			svc := newTestYouTubeService(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"items":[{"id":{"kind":"youtube#channel","channelId":"c"}}]}`)
			})

			_, found, err := svc.SearchVideo(context.Background(), "q")
			if err != nil || found {
				t.Errorf("expected not found without error, got found=%v err=%v", found, err)
			}
		})

		t.Run("HTTP Error", func(t *testing.T) {
			svc := newTestYouTubeService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, `{"error":{"code":403,"message":"quotaExceeded"}}`)
			})

			_, _, err := svc.SearchVideo(context.Background(), "q")
			if !errors.Is(err, shared.ErrUpstreamAuth) {
				t.Errorf("expected ErrUpstreamAuth, got %v", err)
			}
		})

		t.Run("Missing API Key", func(t *testing.T) {
			svc := NewYouTubeService(shared.YouTubeConfig{}, nil, shared.NewLogger(&bytes.Buffer{}))

			_, _, err := svc.SearchVideo(context.Background(), "q")
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("Publish", func(t *testing.T) {
		matches := []models.VideoMatch{
			models.NewVideoMatch(models.Track{Title: "A", Artist: "1"}, "vidA"),
			models.NewVideoMatch(models.Track{Title: "B", Artist: "2"}, "vidB"),
		}

		t.Run("Creates Once And Inserts In Order", func(t *testing.T) {
			var (
				mu       sync.Mutex
				creates  int
				inserted []string
			)
			svc := newTestYouTubeService(t, func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				defer mu.Unlock()

				if r.Header.Get("Authorization") != "Bearer user-token" {
					t.Errorf("expected user bearer token, got %q", r.Header.Get("Authorization"))
				}

				switch r.URL.Path {
				case "/playlists":
					creates++
					if r.URL.Query().Get("part") != "snippet,status" {
						t.Errorf("unexpected part %q", r.URL.Query().Get("part"))
					}
					var body YouTubePlaylistResource
					json.NewDecoder(r.Body).Decode(&body)
					if body.Snippet.Title != "My Mix" || body.Snippet.Description != "Converted from Spotify" {
						t.Errorf("unexpected snippet %+v", body.Snippet)
					}
					if body.Status.PrivacyStatus != "public" {
						t.Errorf("expected public playlist, got %q", body.Status.PrivacyStatus)
					}
					fmt.Fprint(w, `{"id":"PL1"}`)
				case "/playlistItems":
					var body YouTubePlaylistItemResource
					json.NewDecoder(r.Body).Decode(&body)
					if body.Snippet.PlaylistID != "PL1" || body.Snippet.ResourceID.Kind != "youtube#video" {
						t.Errorf("unexpected item %+v", body.Snippet)
					}
					inserted = append(inserted, body.Snippet.ResourceID.VideoID)
					fmt.Fprint(w, `{"id":"item"}`)
				default:
					t.Errorf("unexpected path %s", r.URL.Path)
				}
			})

			result, err := svc.Publish(context.Background(), "My Mix", matches, "user-token")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if creates != 1 {
				t.Errorf("expected one playlist create, got %d", creates)
			}
			if len(inserted) != 2 || inserted[0] != "vidA" || inserted[1] != "vidB" {
				t.Errorf("expected inserts [vidA vidB], got %v", inserted)
			}
			if result.Playlist.ID != "PL1" || result.Inserted != 2 || len(result.Failed) != 0 {
				t.Errorf("unexpected result %+v", result)
			}
			if result.Playlist.URL() != "https://www.youtube.com/playlist?list=PL1" {
				t.Errorf("unexpected playlist url %s", result.Playlist.URL())
			}
			if len(result.Playlist.VideoIDs) != 2 || result.Playlist.VideoIDs[1] != "vidB" {
				t.Errorf("expected playlist video ids to follow match order, got %v", result.Playlist.VideoIDs)
			}
		})

		t.Run("Default Title", func(t *testing.T) {
			svc := newTestYouTubeService(t, func(w http.ResponseWriter, r *http.Request) {
				var body YouTubePlaylistResource
				json.NewDecoder(r.Body).Decode(&body)
				if body.Snippet.Title != "Converted Playlist" {
					t.Errorf("expected default title, got %q", body.Snippet.Title)
				}
				fmt.Fprint(w, `{"id":"PL1"}`)
			})

			if _, err := svc.Publish(context.Background(), "", nil, "tok"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Create Failure Aborts", func(t *testing.T) {
			var itemCalls atomic.Int32
			svc := newTestYouTubeService(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/playlistItems" {
					itemCalls.Add(1)
				}
				w.WriteHeader(http.StatusBadRequest)
			})

			result, err := svc.Publish(context.Background(), "T", matches, "tok")
			if !errors.Is(err, shared.ErrPlaylistCreate) {
				t.Errorf("expected ErrPlaylistCreate, got %v", err)
			}
			if result != nil || itemCalls.Load() != 0 {
				t.Errorf("expected no result and no inserts, got %+v and %d inserts", result, itemCalls.Load())
			}
		})

		t.Run("Create Without ID Is Fatal", func(t *testing.T) {
			svc := newTestYouTubeService(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{}`)
			})

			_, err := svc.Publish(context.Background(), "T", matches, "tok")
			if !errors.Is(err, shared.ErrPlaylistCreate) || !errors.Is(err, shared.ErrUpstreamData) {
				t.Errorf("expected ErrPlaylistCreate wrapping ErrUpstreamData, got %v", err)
			}
		})

		t.Run("Revoked Token On Create", func(t *testing.T) {
			svc := newTestYouTubeService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			})

			_, err := svc.Publish(context.Background(), "T", matches, "tok")
			if !errors.Is(err, shared.ErrAuthorizationRevoked) || !shared.IsAuthorizationRequired(err) {
				t.Errorf("expected ErrAuthorizationRevoked, got %v", err)
			}
		})

		t.Run("Item Failure Is Recorded", func(t *testing.T) {
			svc := newTestYouTubeService(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/playlists" {
					fmt.Fprint(w, `{"id":"PL1"}`)
					return
				}
				var body YouTubePlaylistItemResource
				json.NewDecoder(r.Body).Decode(&body)
				if body.Snippet.ResourceID.VideoID == "vidA" {
					w.WriteHeader(http.StatusNotFound)
					fmt.Fprint(w, `{"error":{"code":404,"message":"videoNotFound"}}`)
					return
				}
				fmt.Fprint(w, `{"id":"item"}`)
			})

			result, err := svc.Publish(context.Background(), "T", matches, "tok")
			if err != nil {
				t.Fatalf("expected partial success without error, got %v", err)
			}
			if result.Inserted != 1 || len(result.Failed) != 1 {
				t.Fatalf("expected 1 inserted and 1 failed, got %+v", result)
			}
			if result.Failed[0].Match.VideoID != "vidA" {
				t.Errorf("expected vidA to be reported, got %+v", result.Failed[0])
			}
			if len(result.Playlist.VideoIDs) != 1 || result.Playlist.VideoIDs[0] != "vidB" {
				t.Errorf("playlist should only list inserted videos, got %v", result.Playlist.VideoIDs)
			}
		})

		t.Run("Revoked Token Mid Publish", func(t *testing.T) {
			var itemCalls atomic.Int32
			svc := newTestYouTubeService(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/playlists" {
					fmt.Fprint(w, `{"id":"PL1"}`)
					return
				}
				if itemCalls.Add(1) == 2 {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				fmt.Fprint(w, `{"id":"item"}`)
			})

			three := append(matches, models.NewVideoMatch(models.Track{Title: "C", Artist: "3"}, "vidC"))
			result, err := svc.Publish(context.Background(), "T", three, "tok")
			if !errors.Is(err, shared.ErrAuthorizationRevoked) {
				t.Fatalf("expected ErrAuthorizationRevoked, got %v", err)
			}
			if result == nil || result.Inserted != 1 || result.Playlist.ID != "PL1" {
				t.Errorf("expected partial result with one insert, got %+v", result)
			}
			if itemCalls.Load() != 2 {
				t.Errorf("publishing should stop at the revoked token, got %d item calls", itemCalls.Load())
			}
		})
	})
}

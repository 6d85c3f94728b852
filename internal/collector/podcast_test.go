package collector

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"testing"

	"github.com/LJTian/crypturls/internal/sources"
)

func TestParseITunes(t *testing.T) {
	it, ok, err := ParseITunes([]byte(`{"resultCount":1,"results":[{"collectionName":"Bankless","artworkUrl100":"https://a/100.jpg"}]}`))
	if err != nil || !ok {
		t.Fatalf("ok = %v, err = %v", ok, err)
	}
	if it.CollectionName != "Bankless" || it.ArtworkURL100 != "https://a/100.jpg" {
		t.Fatalf("result = %+v", it)
	}

	if _, ok, err := ParseITunes([]byte(`{"resultCount":0,"results":[]}`)); ok || err != nil {
		t.Fatalf("empty results ok = %v, err = %v", ok, err)
	}
	if _, _, err := ParseITunes([]byte(`oops`)); err == nil {
		t.Fatalf("expected error for bad json")
	}
}

func TestBuildPodcastCard(t *testing.T) {
	p := sources.Podcast{Term: "Unchained crypto podcast", Host: "Laura Shin", Color: "#1DB954"}

	card := BuildPodcastCard(p, ITunesResult{}, Episode{})
	if card.Title != "Unchained" || card.ArtworkURL != "" || card.Host != "Laura Shin" {
		t.Fatalf("fallback card = %+v", card)
	}

	card = BuildPodcastCard(p,
		ITunesResult{CollectionName: "Unchained", ArtworkURL600: "https://a/600.jpg", ArtworkURL100: "https://a/100.jpg"},
		Episode{VideoID: "v1", Title: "Ep 1", Published: "Jan 3"})
	want := PodcastCard{
		Title:         "Unchained",
		Host:          "Laura Shin",
		Color:         "#1DB954",
		ArtworkURL:    "https://a/600.jpg",
		LatestVideoID: "v1",
		LatestEpisode: "Ep 1",
		Published:     "Jan 3",
	}
	if card != want {
		t.Fatalf("card = %+v, want %+v", card, want)
	}

	for _, term := range []string{"", "   "} {
		card := BuildPodcastCard(sources.Podcast{Term: term, Host: "Anon"}, ITunesResult{}, Episode{})
		if card.Title != "" || card.Host != "Anon" {
			t.Fatalf("BuildPodcastCard(term %q) = %+v", term, card)
		}
	}
}

func TestFetchPodcastToleratesPartialFailure(t *testing.T) {
	p := sources.Podcast{Term: "Bankless pod", Host: "Ryan", ChannelID: "UCbank", TitleFilter: regexp.MustCompile(`(?i)pasta`)}
	itunes := fmt.Sprintf(itunesSearchURL, url.QueryEscape(p.Term))

	g := stubGetter{body: map[string]string{
		ChannelFeedURL("UCbank"): channelFeed,
	}}
	card := FetchPodcast(context.Background(), g, p)
	if card.Title != "Bankless" || card.LatestVideoID != "vid2" || card.Published != "Jan 8" {
		t.Fatalf("card without itunes = %+v", card)
	}

	g = stubGetter{body: map[string]string{
		itunes: `{"results":[{"collectionName":"Bankless Official","artworkUrl600":"https://a/600.jpg"}]}`,
	}}
	card = FetchPodcast(context.Background(), g, p)
	if card.Title != "Bankless Official" || card.ArtworkURL != "https://a/600.jpg" || card.LatestVideoID != "" {
		t.Fatalf("card without feed = %+v", card)
	}
}

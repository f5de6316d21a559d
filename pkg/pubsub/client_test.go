package pubsub

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/multierr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"bazaar-dev", "orders", "projects/bazaar-dev/topics/orders"},
		{"bazaar-dev", " projects/other/topics/orders ", "projects/other/topics/orders"},
		{"", "orders", ""},
		{"bazaar-dev", "", ""},
	}
	for _, tc := range cases {
		if got := ResourceName(tc.project, "topics", tc.name); got != tc.want {
			t.Fatalf("ResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestTopicNamesSkipsBlankAndDuplicates(t *testing.T) {
	names := TopicNames(config.PubSubConfig{
		OrdersTopic:       "bazaar-events",
		PayoutsTopic:      "bazaar-events",
		ReturnsTopic:      " ",
		NotificationTopic: "bazaar-notifications",
	})
	if len(names) != 2 || names[0] != "bazaar-events" || names[1] != "bazaar-notifications" {
		t.Fatalf("unexpected topics %v", names)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil {
		t.Fatalf("expected nil publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close nil client: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error")
	}
}

func TestCheckTopicsReportsEveryMissingTopic(t *testing.T) {
	c := &Client{
		projectID: "bazaar-dev",
		cfg:       config.PubSubConfig{OrdersTopic: "orders", PayoutsTopic: "payouts", ReturnsTopic: "returns"},
		lookup: func(_ context.Context, fullName string) error {
			switch fullName {
			case "projects/bazaar-dev/topics/orders":
				return nil
			case "projects/bazaar-dev/topics/payouts":
				return status.Error(codes.NotFound, "no such topic")
			}
			return errors.New("deadline exceeded")
		},
	}

	err := c.Ping(context.Background())
	errs := multierr.Errors(err)
	if len(errs) != 2 {
		t.Fatalf("expected two topic errors, got %v", err)
	}
	if !strings.Contains(errs[0].Error(), `"payouts" does not exist`) {
		t.Fatalf("unexpected first error %v", errs[0])
	}
	if !strings.Contains(errs[1].Error(), `checking topic "returns"`) {
		t.Fatalf("unexpected second error %v", errs[1])
	}
}

func TestCheckTopicsRequiresATopic(t *testing.T) {
	c := &Client{projectID: "bazaar-dev", lookup: func(context.Context, string) error { return nil }}
	if err := c.Ping(context.Background()); !errors.Is(err, errNoTopics) {
		t.Fatalf("expected errNoTopics, got %v", err)
	}
}

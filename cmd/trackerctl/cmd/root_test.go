package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/apptracker/application-tracker/cmd/trackerctl/cmd/auth"
	"github.com/apptracker/application-tracker/pkg/apiclient"
	"github.com/apptracker/application-tracker/pkg/session"
)

func TestDescribe(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&apiclient.TransportFailure{Kind: apiclient.KindHTTP, HTTPStatus: 401}, "not signed in or session expired; run `trackerctl auth login`"},
		{&apiclient.TransportFailure{Kind: apiclient.KindHTTP, HTTPStatus: 403}, "not signed in or session expired; run `trackerctl auth login`"},
		{fmt.Errorf("list: %w", &apiclient.TransportFailure{Kind: apiclient.KindHTTP, HTTPStatus: 404}), "not found"},
		{&apiclient.TransportFailure{Kind: apiclient.KindNetwork}, "cannot reach the tracker server"},
		{&apiclient.TransportFailure{Kind: apiclient.KindHTTP, HTTPStatus: 500}, "request failed with status 500"},
		{auth.ErrNotSignedIn, "not signed in or session expired; run `trackerctl auth login`"},
		{errors.New("boom"), "boom"},
	}
	for _, tc := range cases {
		if got := describe(tc.err); got != tc.want {
			t.Fatalf("describe(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}

	af := &session.AuthFailure{Reason: session.RateLimited}
	if got := describe(af); got != af.Error() {
		t.Fatalf("expected auth failure message, got %q", got)
	}
}

package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/credential"
	"github.com/MrSnakeDoc/linkshelf/internal/gateway"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

type accountResponse struct {
	User         gateway.UserInfo      `json:"user"`
	Subscription *gateway.Subscription `json:"subscription,omitempty"`
	RSSURL       string                `json:"rssUrl,omitempty"`
	APIKey       string                `json:"apiKey"`
}

// Account describes the account behind the stored API key. The RSS URL and
// the subscription are best effort: a failure there does not fail the
// profile.
func Account(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		apiKey, err := d.Credentials.Get(ctx)
		if err != nil {
			writeError(w, d.Logger, err, nil)
			return
		}
		if apiKey == "" {
			writeError(w, d.Logger, apperror.NoCredential(), nil)
			return
		}

		info, err := d.Account.UserInfo(ctx, apiKey)
		if err != nil {
			writeError(w, d.Logger, err, nil)
			return
		}

		rss, err := d.Account.RSSFeedURL(ctx, apiKey)
		if err != nil {
			d.Logger.Warn("rss feed url unavailable", logger.Error(err))
		}

		resp := accountResponse{
			User:   info,
			RSSURL: rss,
			APIKey: credential.Redact(apiKey),
		}
		if sub, err := d.Account.Subscription(ctx, apiKey); err != nil {
			d.Logger.Warn("subscription status unavailable", logger.Error(err))
		} else {
			resp.Subscription = &sub
		}

		writeJSON(w, d.Logger, http.StatusOK, resp)
	}
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp/rplogin/login"
)

// Login creates a http handler driving m. The flow state travels between
// requests in a cookie sealed by codec, so the handler itself keeps no
// state and a single instance serves every user.
//
// Supported options: WithLogger, WithAbandonFunc
func Login(m *login.Module, codec *SessionCodec, sFn SuccessResponseFunc, eFn ErrorResponseFunc, pFn PromptResponseFunc, opt ...Option) (http.HandlerFunc, error) {
	const op = "handler.Login"
	switch {
	case m == nil:
		return nil, fmt.Errorf("%s: missing login module: %w", op, ErrNilParameter)
	case codec == nil:
		return nil, fmt.Errorf("%s: missing session codec: %w", op, ErrNilParameter)
	case sFn == nil:
		return nil, fmt.Errorf("%s: missing success response func: %w", op, ErrNilParameter)
	case eFn == nil:
		return nil, fmt.Errorf("%s: missing error response func: %w", op, ErrNilParameter)
	case pFn == nil:
		return nil, fmt.Errorf("%s: missing prompt response func: %w", op, ErrNilParameter)
	}
	opts := getLoginOpts(opt...)
	logger := opts.withLogger.Named("handler")

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req, err := login.NewRequest(r)
		if err != nil {
			logger.Debug("unreadable request", "error", err)
			eFn(login.LocalizeError(login.MatchLanguage(r.Header.Get("Accept-Language")), err), err, w, r)
			return
		}

		var flow login.FlowState
		if c, err := r.Cookie(codec.Name()); err == nil {
			if flow, err = codec.Open(c); err != nil {
				logger.Debug("discarding unreadable flow cookie", "error", err)
			}
		}

		res, err := m.Process(ctx, req, flow)
		if err == nil && res.Status == login.StatusContinue && res.State() == login.StateStart {
			res, err = m.Process(ctx, &login.Request{
				Params:      url.Values{},
				Cookies:     req.Cookies,
				OriginalURL: req.OriginalURL,
				Language:    req.Language,
			}, login.FlowState{})
		}
		if err != nil {
			if login.KindOf(err) == login.KindInternal {
				logger.Error("login failed", "error", err)
			} else {
				logger.Debug("login failed", "kind", login.KindOf(err).String(), "error", err)
			}
			http.SetCookie(w, codec.Clear())
			eFn(login.LocalizeError(req.Language, err), err, w, r)
			return
		}

		for _, c := range res.Cookies {
			http.SetCookie(w, c)
		}
		switch res.Status {
		case login.StatusRedirect, login.StatusContinue:
			c, err := codec.Seal(res.Flow, m.TTL())
			if err != nil {
				logger.Error("unable to seal flow", "error", err)
				err = login.NewError(login.KindInternal, login.KeyInternal, login.WithOp("handler.Login"), login.WithWrap(err))
				eFn(login.LocalizeError(req.Language, err), err, w, r)
				return
			}
			http.SetCookie(w, c)
			if res.Status == login.StatusRedirect {
				http.Redirect(w, r, res.RedirectURL, http.StatusFound)
				return
			}
			var message string
			if res.Problem != nil {
				message = login.LocalizeError(req.Language, res.Problem)
			}
			pFn(res, message, w, r)
		case login.StatusSucceeded:
			http.SetCookie(w, codec.Clear())
			sFn(res.User, res, w, r)
		case login.StatusAbandoned:
			http.SetCookie(w, codec.Clear())
			opts.withAbandonFunc(w, r)
		default:
			err := login.NewError(login.KindInternal, login.KeyInternal, login.WithOp("handler.Login"), login.WithWrap(errors.New("unknown status")))
			eFn(login.LocalizeError(req.Language, err), err, w, r)
		}
	}, nil
}

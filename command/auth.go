// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package command

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/emersion/go-sasl"

	"github.com/emersion/go-smtp-connect"
)

// Auth authenticates the client using a SASL mechanism (RFC 4954).
//
// A rejection by the server is returned as a *smtp.LogicError. If the
// mechanism itself fails, the exchange is cancelled with "*" and the
// mechanism's error is returned together with the connection.
type Auth struct {
	Client sasl.Client
}

// PlainAuth returns an Auth using the PLAIN mechanism (RFC 4616).
func PlainAuth(identity, username, password string) *Auth {
	return &Auth{Client: sasl.NewPlainClient(identity, username, password)}
}

// LoginAuth returns an Auth using the obsolete but widely deployed LOGIN
// mechanism.
func LoginAuth(username, password string) *Auth {
	return &Auth{Client: sasl.NewLoginClient(username, password)}
}

// AnonymousAuth returns an Auth using the ANONYMOUS mechanism (RFC 4505).
func AnonymousAuth(trace string) *Auth {
	return &Auth{Client: sasl.NewAnonymousClient(trace)}
}

// ExternalAuth returns an Auth using the EXTERNAL mechanism (RFC 4422),
// e.g. with a TLS client certificate.
func ExternalAuth(identity string) *Auth {
	return &Auth{Client: sasl.NewExternalClient(identity)}
}

// OAuthBearerAuth returns an Auth using the OAUTHBEARER mechanism
// (RFC 7628).
func OAuthBearerAuth(username, token string) *Auth {
	return &Auth{Client: sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
		Username: username,
		Token:    token,
	})}
}

func (a *Auth) Exec(ctx context.Context, c *smtp.Conn) (*smtp.Conn, *smtp.Response, error) {
	encoding := base64.StdEncoding
	mech, ir, err := a.Client.Start()
	if err != nil {
		return c, nil, fmt.Errorf("smtp: starting SASL %s: %w", mech, err)
	}

	cmd := "AUTH " + mech
	if ir != nil {
		if len(ir) == 0 {
			// An empty initial response is sent as "=" (RFC 4954 section 4)
			cmd += " ="
		} else {
			cmd += " " + encoding.EncodeToString(ir)
		}
	}

	c, resp, err := c.SendSimpleCmd(ctx, smtp.SecretLine(cmd))
	for err == nil && resp.Code == 334 {
		var challenge, toServer []byte
		challenge, err = encoding.DecodeString(resp.Message())
		if err == nil {
			toServer, err = a.Client.Next(challenge)
		}
		if err != nil {
			// abort the AUTH
			mechErr := err
			c, resp, err = c.SendSimpleCmd(ctx, smtp.Line("*"))
			if c == nil {
				return nil, nil, err
			}
			return c, resp, fmt.Errorf("smtp: AUTH %s aborted: %w", mech, mechErr)
		}
		c, resp, err = c.SendSimpleCmd(ctx, smtp.SecretLine(encoding.EncodeToString(toServer)))
	}
	return c, resp, err
}

/*
Package agrosdk is the client-side session layer for AgrowCrop.

# Modes

A Session runs in exactly one of two modes, chosen once by NewSession:

  - Delegated: a hosted identity provider owns sign-in. The session observes
    the provider and republishes the token it mints from the "agrowcrop-api"
    template. Nothing is persisted.
  - Local: the user proves a phone number with a one-time code sent by the
    AgrowCrop OTP service. The issued token is persisted under the keys
    agro_token and agro_user and restored on the next start.

The mode is delegated whenever SessionConfig.PublishableKey is set:

	sess, err := agrosdk.NewSession(ctx, agrosdk.SessionConfig{},
		agrosdk.WithCredentialStore(store),
		agrosdk.WithLogger(logger),
	)

# Local sign-in

OTPFlow drives the challenge. Numbers are canonicalised with NormalizePhone
(a bare 10-digit number gets +91):

	flow := agrosdk.NewOTPFlow(agrosdk.NewSDKClient(baseURL, logger), sess,
		agrosdk.OTPFlowConfig{Production: env == "prod"}, logger)

	if err := flow.RequestCode(ctx, "9876543210"); err != nil {
		return err
	}
	if err := flow.VerifyCode(ctx, "", code); err != nil {
		return err
	}

Outside production, a failed send falls back to a locally generated code that
is logged and passed to OTPFlowConfig.OnDevCode.

# Authenticated requests

APIClient pulls the token from the session on every round trip through
BearerTransport. There is nothing to re-register when the token changes, and
a request built after Logout never carries the old token. A 401 is logged
and returned to the caller; it does not end the session.

	api := agrosdk.NewAPIClient(baseURL, sess, logger)
	me, err := api.Me(ctx)

SDKClient is the unauthenticated variant used for the OTP endpoints.

# Context

Sessions are passed explicitly or carried on a context:

	ctx = agrosdk.WithSession(ctx, sess)
	sess := agrosdk.MustFromContext(ctx)

# Thread Safety

All types are safe for concurrent use.
*/
package agrosdk

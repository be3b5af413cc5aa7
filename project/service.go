package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/feedbacksdev/fanout/endpoint"
	"github.com/feedbacksdev/fanout/id"
	"github.com/feedbacksdev/fanout/signature"
)

// Service manages project webhooks configuration.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new project service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Get returns a project by id.
func (svc *Service) Get(ctx context.Context, projectID string) (*Project, error) {
	return svc.store.GetProject(ctx, projectID)
}

// ErrNoGenericEndpoint is returned by RotateSecret when the project has no
// generic endpoint to rotate a secret for.
var ErrNoGenericEndpoint = errors.New("project: no generic endpoint configured")

// ConfigError is the rejected result of a webhooks configuration update.
type ConfigError struct {
	Fields []endpoint.FieldError
}

func (e *ConfigError) Error() string {
	if len(e.Fields) == 1 {
		return e.Fields[0].Error()
	}
	return fmt.Sprintf("webhooks config: %d invalid fields", len(e.Fields))
}

// UpdateWebhooks validates and persists a project's webhooks configuration.
// Invalid configuration is rejected with a *ConfigError listing every
// offending field path; nothing is written in that case.
func (svc *Service) UpdateWebhooks(ctx context.Context, projectID string, webhooks json.RawMessage) error {
	if fieldErrs := endpoint.Validate(webhooks); len(fieldErrs) > 0 {
		return &ConfigError{Fields: fieldErrs}
	}

	if _, err := svc.store.GetProject(ctx, projectID); err != nil {
		return err
	}

	if err := svc.store.UpdateWebhooks(ctx, projectID, webhooks); err != nil {
		return fmt.Errorf("project: update webhooks: %w", err)
	}

	svc.logger.DebugContext(ctx, "webhooks config updated", "project_id", projectID)
	return nil
}

// RotateSecret generates a new signing secret for the project's generic
// endpoint and persists the updated configuration. Returns the new secret.
func (svc *Service) RotateSecret(ctx context.Context, projectID, endpointID string) (string, error) {
	p, err := svc.store.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}

	var cfg map[string]json.RawMessage
	if len(p.Webhooks) > 0 {
		if unmarshalErr := json.Unmarshal(p.Webhooks, &cfg); unmarshalErr != nil {
			return "", fmt.Errorf("project: decode webhooks: %w", unmarshalErr)
		}
	}
	if cfg == nil {
		cfg = make(map[string]json.RawMessage)
	}

	genericRaw, ok := cfg[string(endpoint.KindGeneric)]
	if !ok {
		return "", fmt.Errorf("project %s: %w", projectID, ErrNoGenericEndpoint)
	}

	newSecret := signature.GenerateSecret()
	rotated, err := rotateIn(genericRaw, endpointID, newSecret)
	if err != nil {
		return "", err
	}
	cfg[string(endpoint.KindGeneric)] = rotated

	updated, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("project: encode webhooks: %w", err)
	}
	if err := svc.store.UpdateWebhooks(ctx, projectID, updated); err != nil {
		return "", fmt.Errorf("project: update webhooks: %w", err)
	}

	svc.logger.InfoContext(ctx, "signing secret rotated",
		"project_id", projectID, "endpoint_id", endpointID)
	return newSecret, nil
}

// rotateIn rewrites the secret inside either config shape. An empty
// endpointID targets the legacy single-object shape or the first endpoint.
// Endpoints without an explicit id match by their url-derived id.
func rotateIn(raw json.RawMessage, endpointID, secret string) (json.RawMessage, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode generic config: %w", err)
	}

	endpoints, isArrayShape := obj["endpoints"].([]any)
	if !isArrayShape {
		obj["secret"] = secret
		return json.Marshal(obj)
	}

	found := false
	for _, e := range endpoints {
		ep, ok := e.(map[string]any)
		if !ok {
			continue
		}
		epID, _ := ep["id"].(string)
		if epID == "" {
			if url, ok := ep["url"].(string); ok {
				epID = id.DeriveEndpointID(url)
			}
		}
		if endpointID == "" || epID == endpointID {
			ep["secret"] = secret
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("generic endpoint %q not found", endpointID)
	}
	return json.Marshal(obj)
}

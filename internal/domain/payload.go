package domain

import (
	"strings"

	"github.com/UkralStul/agora/internal/json"
)

// ProposalKind names the effect a proposal applies when it passes.
type ProposalKind string

const (
	KindRemoveContent    ProposalKind = "remove_content"
	KindUpdateParameters ProposalKind = "update_parameters"
	KindGrantRole        ProposalKind = "grant_role"
	KindRevokeRole       ProposalKind = "revoke_role"
)

// Payload is the closed set of proposal effects. Only the four types in this
// file implement it.
type Payload interface {
	Kind() ProposalKind
	Validate() error
	payload()
}

// RemoveContent is opened by the moderation engine for a flagged post.
type RemoveContent struct {
	PostID uint64 `json:"postId"`
}

// UpdateParameters sets one platform parameter.
type UpdateParameters struct {
	Name  ParamName `json:"name"`
	Value uint64    `json:"value"`
}

type GrantRole struct {
	Role   Role     `json:"role"`
	Target Identity `json:"target"`
}

type RevokeRole struct {
	Role   Role     `json:"role"`
	Target Identity `json:"target"`
}

func (RemoveContent) Kind() ProposalKind    { return KindRemoveContent }
func (UpdateParameters) Kind() ProposalKind { return KindUpdateParameters }
func (GrantRole) Kind() ProposalKind        { return KindGrantRole }
func (RevokeRole) Kind() ProposalKind       { return KindRevokeRole }

func (RemoveContent) payload()    {}
func (UpdateParameters) payload() {}
func (GrantRole) payload()        {}
func (RevokeRole) payload()       {}

func (RemoveContent) Validate() error { return nil }

func (p UpdateParameters) Validate() error {
	return ValidateParameter(p.Name, p.Value)
}

func (p GrantRole) Validate() error {
	return validateRoleTarget(p.Role, p.Target)
}

func (p RevokeRole) Validate() error {
	return validateRoleTarget(p.Role, p.Target)
}

func validateRoleTarget(role Role, target Identity) error {
	if !role.Valid() {
		return Errorf(KindInvalidArgument, "unknown role %q", role)
	}
	if strings.TrimSpace(string(target)) == "" {
		return Errorf(KindInvalidArgument, "role target is required")
	}
	return nil
}

type payloadEnvelope struct {
	Kind ProposalKind    `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodePayload renders p as {"kind": ..., "data": {...}}.
func EncodePayload(p Payload) (json.RawMessage, error) {
	if p == nil {
		return nil, Errorf(KindInvalidArgument, "proposal payload is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(payloadEnvelope{Kind: p.Kind(), Data: data})
}

// DecodePayload is the inverse of EncodePayload. Unknown kinds are rejected.
func DecodePayload(raw json.RawMessage) (Payload, error) {
	var env payloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, Errorf(KindInvalidArgument, "malformed payload: %v", err)
	}
	var p Payload
	var err error
	switch env.Kind {
	case KindRemoveContent:
		var v RemoveContent
		err = json.Unmarshal(env.Data, &v)
		p = v
	case KindUpdateParameters:
		var v UpdateParameters
		err = json.Unmarshal(env.Data, &v)
		p = v
	case KindGrantRole:
		var v GrantRole
		err = json.Unmarshal(env.Data, &v)
		p = v
	case KindRevokeRole:
		var v RevokeRole
		err = json.Unmarshal(env.Data, &v)
		p = v
	default:
		return nil, Errorf(KindInvalidArgument, "unknown proposal kind %q", env.Kind)
	}
	if err != nil {
		return nil, Errorf(KindInvalidArgument, "malformed %s payload: %v", env.Kind, err)
	}
	return p, nil
}

// MarshalJSON exposes the kind and the payload alongside the proposal fields.
func (p Proposal) MarshalJSON() ([]byte, error) {
	type alias Proposal
	return json.Marshal(struct {
		alias
		Kind    ProposalKind `json:"kind"`
		Payload Payload      `json:"payload"`
	}{alias: alias(p), Kind: p.Kind(), Payload: p.Payload})
}

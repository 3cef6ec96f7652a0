package domain

import "time"

// ParamName identifies a platform parameter changeable by governance.
type ParamName string

const (
	ParamFlagThreshold    ParamName = "flagThreshold"
	ParamVoteDuration     ParamName = "voteDuration"
	ParamQuorumPercentage ParamName = "quorumPercentage"
)

// maxVoteDuration keeps startTime+voteDuration far away from time.Duration overflow.
const maxVoteDuration = 365 * 24 * time.Hour

// Parameters is the process-wide configuration record. It is mutated only by
// an executed UpdateParameters proposal.
type Parameters struct {
	// FlagThreshold is stored and governable but flagging never consults it.
	FlagThreshold    uint64        `json:"flagThreshold" yaml:"flagThreshold"`
	VoteDuration     time.Duration `json:"voteDuration" yaml:"voteDuration"`
	QuorumPercentage uint64        `json:"quorumPercentage" yaml:"quorumPercentage"`
}

func DefaultParameters() Parameters {
	return Parameters{
		FlagThreshold:    5,
		VoteDuration:     3 * 24 * time.Hour,
		QuorumPercentage: 10,
	}
}

// ValidateParameter checks a (name, value) pair. voteDuration is in seconds.
func ValidateParameter(name ParamName, value uint64) error {
	switch name {
	case ParamFlagThreshold:
		if value == 0 {
			return Errorf(KindInvalidArgument, "flagThreshold must be positive")
		}
	case ParamVoteDuration:
		if value == 0 || value > uint64(maxVoteDuration/time.Second) {
			return Errorf(KindInvalidArgument, "voteDuration out of range: %d", value)
		}
	case ParamQuorumPercentage:
		if value > 100 {
			return Errorf(KindInvalidArgument, "quorumPercentage out of range: %d", value)
		}
	default:
		return Errorf(KindInvalidArgument, "unknown parameter %q", name)
	}
	return nil
}

// Set validates and applies one parameter.
func (p *Parameters) Set(name ParamName, value uint64) error {
	if err := ValidateParameter(name, value); err != nil {
		return err
	}
	switch name {
	case ParamFlagThreshold:
		p.FlagThreshold = value
	case ParamVoteDuration:
		p.VoteDuration = time.Duration(value) * time.Second
	case ParamQuorumPercentage:
		p.QuorumPercentage = value
	}
	return nil
}

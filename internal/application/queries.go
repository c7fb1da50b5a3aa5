package application

import "github.com/bnema/lfg-coordinator/internal/domain"

type CreateResult struct {
	Session domain.SessionSnapshot
	// ResourceErr is set when provisioning only partly succeeded. The
	// session is still recorded with whatever handles were created.
	ResourceErr error
	Fanout      FanoutReport
}

type CommunitySettings struct {
	CommunityID domain.CommunityID
	TargetRoom  string
	Filter      domain.GameFilter
}

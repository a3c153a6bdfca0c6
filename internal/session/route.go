package session

import "github.com/amishk599/cvvin/internal/model"

// NextStage is the stage a user must be sent to given session and profile:
// login when logged out, profile setup right after signup until the profile
// is complete (unless skipped), otherwise the dashboard.
func NextStage(sess model.Session, profile model.Profile) model.Stage {
	switch {
	case !sess.IsAuthenticated:
		return model.StageLogin
	case !profile.IsComplete && sess.Origin == model.OriginSignup && !sess.SetupSkipped:
		return model.StageProfileSetup
	default:
		return model.StageDashboard
	}
}

// NextStage applies the routing gate to the store's current state.
func (s *Store) NextStage() model.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NextStage(s.session, s.profile)
}

// CanEnter reports whether stage is reachable now. Only the login stage is
// reachable without a session.
func (s *Store) CanEnter(stage model.Stage) error {
	if stage == model.StageLogin {
		return nil
	}
	if !s.IsAuthenticated() {
		return model.ErrNotAuthenticated
	}
	return nil
}

package engine

import "github.com/shirokuma-kb/shirokuma/internal/database"

// GetCurrentState returns the current-state singleton, materializing an
// empty default on first call.
func (e *Engine) GetCurrentState() (*database.CurrentState, error) {
	state, err := e.state.Get(nowMillis())
	if err != nil {
		return nil, internalError("get_current_state", err)
	}
	return state, nil
}

// UpdateCurrentState overwrites the current-state singleton, validating
// that every related id exists.
func (e *Engine) UpdateCurrentState(content string, tags []string, related []int64, updatedBy string) (*database.CurrentState, error) {
	if err := e.state.Update(content, tags, related, updatedBy, nowMillis()); err != nil {
		return nil, translate("update_current_state", "item", err)
	}
	return e.GetCurrentState()
}

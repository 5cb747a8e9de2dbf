package statemachine

import "dispatch/pkg/apperror"

func errInvalidOrderTransition(from, to string) error {
	return apperror.NewWithField(apperror.CodeConflict, "order transition not allowed: "+from+" -> "+to, "status")
}

func errInvalidRouteTransition(from, to string) error {
	return apperror.NewWithField(apperror.CodeConflict, "route transition not allowed: "+from+" -> "+to, "status")
}

func errVersionConflict(entity, id string) error {
	return apperror.NewWithField(apperror.CodeVersionConflict, entity+" "+id+" was modified concurrently", "version")
}

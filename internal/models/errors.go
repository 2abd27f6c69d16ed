package models

import "errors"

var (
	// ErrCycle возвращается при попытке сделать группу потомком самой себя
	ErrCycle = errors.New("group cannot be moved into itself or its subgroup")

	// ErrNotFound indicates that an object is not part of the tree
	ErrNotFound = errors.New("object not found")

	// ErrRootGroup indicates an operation that is not allowed on the root group
	ErrRootGroup = errors.New("operation not allowed on root group")

	// ErrHistoryIndex indicates a history index out of range
	ErrHistoryIndex = errors.New("history index out of range")
)

// Package platform contains filesystem glue shared by the orchestrator and
// packager: directory helpers, the default output root, and discovery of
// files the collaborator wrote without reporting their paths.
package platform

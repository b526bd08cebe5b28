// Package types provides type definitions for structured data used throughout the autosurvey system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// RequirementRecord is the structured extraction of a free-text survey request.
// Field order is part of the contract: prompts and the retrieval query consume
// the fields in the order returned by Fields.
type RequirementRecord struct {
	Purpose            string   `json:"purpose" validate:"required"`
	TargetPopulation   string   `json:"target_population" validate:"required"`
	Variables          []string `json:"variables" validate:"dive,required"`
	RequestedItemCount string   `json:"requested_item_count"`
	SpecialConstraints string   `json:"special_constraints"`
}

// RecordField is one named field of a RequirementRecord.
type RecordField struct {
	Name  string
	Value string
}

// Fields returns the record fields in their fixed contract order.
// Variables are joined with ", " in salience order.
func (r *RequirementRecord) Fields() []RecordField {
	return []RecordField{
		{Name: "purpose", Value: r.Purpose},
		{Name: "target_population", Value: r.TargetPopulation},
		{Name: "variables", Value: r.JoinedVariables()},
		{Name: "requested_item_count", Value: r.RequestedItemCount},
		{Name: "special_constraints", Value: r.SpecialConstraints},
	}
}

// JoinedVariables returns the measured variables joined in salience order.
func (r *RequirementRecord) JoinedVariables() string {
	return strings.Join(r.Variables, ", ")
}

// Validate validates the RequirementRecord using the validator.
func (r *RequirementRecord) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

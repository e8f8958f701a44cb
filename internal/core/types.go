package core

import "gardencore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Base               = domain.Base
	Plant              = domain.Plant
	Site               = domain.Site
	Zone               = domain.Zone
	Design             = domain.Design
	DesignOptions      = domain.DesignOptions
	DesignRecord       = domain.DesignRecord
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
)

const (
	EntityPlant  = domain.EntityPlant
	EntitySite   = domain.EntitySite
	EntityDesign = domain.EntityDesign
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }

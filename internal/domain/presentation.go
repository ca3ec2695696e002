package domain

// Presentation metadata for statuses and actions, keyed by the enum values.
// Every surface that needs an icon or a color (list view, dashboard, detail
// report) reads this one table instead of carrying its own lookup.

// StatusMeta describes how a status is presented.
type StatusMeta struct {
	Icon  string // icon name in the client icon set
	Color string // hex fill used by badges and report accents
}

// ActionMeta describes how an enforcement action is presented.
type ActionMeta struct {
	Icon string
}

var statusMeta = map[InspectionStatus]StatusMeta{
	StatusOpen:            {Icon: "file", Color: "#3B82F6"},
	StatusUnderReview:     {Icon: "eye", Color: "#8B5CF6"},
	StatusInProgress:      {Icon: "clock", Color: "#EAB308"},
	StatusPendingFollowUp: {Icon: "arrowPath", Color: "#F97316"},
	StatusClosed:          {Icon: "checkCircle", Color: "#22C55E"},
}

var actionMeta = map[InspectionAction]ActionMeta{
	ActionOriented:     {Icon: "chatBubbleLeftRight"},
	ActionNotification: {Icon: "documentText"},
	ActionFine:         {Icon: "receiptPercent"},
	ActionSeizure:      {Icon: "archiveBoxArrowDown"},
	ActionEmbargo:      {Icon: "noSymbol"},
	ActionInterdiction: {Icon: "lockClosed"},
	ActionDemolition:   {Icon: "buildingSlash"},
}

// MetaForStatus returns presentation metadata for a status. Unknown statuses
// get a neutral fallback.
func MetaForStatus(s InspectionStatus) StatusMeta {
	if m, ok := statusMeta[s]; ok {
		return m
	}
	return StatusMeta{Icon: "file", Color: "#6B7280"}
}

// MetaForAction returns presentation metadata for an enforcement action.
func MetaForAction(a InspectionAction) ActionMeta {
	if m, ok := actionMeta[a]; ok {
		return m
	}
	return ActionMeta{Icon: "documentText"}
}

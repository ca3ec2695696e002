// History synthesis and the status-transition policy.
//
// Every mutating operation on an inspection is accountable: changes to the
// tracked fields (status, inspector, report, actions, verified infractions)
// produce templated audit entries attributed to the acting user. The
// functions here are pure so the rule set is testable in isolation from any
// backing store.
package domain

import (
	"fmt"
	"sort"
	"time"
)

// CreationEntry builds the seed history entry for a new case. The text
// depends on whether an inspector was pre-assigned at intake.
func CreationEntry(user, inspector string, now time.Time) HistoryEntry {
	change := "Chamado criado."
	if inspector != "" {
		change = fmt.Sprintf("Chamado criado e atribuído para %s.", inspector)
	}
	return HistoryEntry{Timestamp: now, User: user, Change: change}
}

// DiffChanges compares the requested changes against the current record and
// synthesizes one history entry per tracked field that actually changed.
// All entries share the same timestamp. Actions are compared as sets and the
// verified-infraction map by full equality, so reordering produces no entry.
func DiffChanges(old *Inspection, changes UpdateInspectionParams, user string, now time.Time) []HistoryEntry {
	var entries []HistoryEntry
	add := func(change string) {
		entries = append(entries, HistoryEntry{Timestamp: now, User: user, Change: change})
	}

	if changes.Status != nil && *changes.Status != old.Status {
		add(fmt.Sprintf("Status alterado de %q para %q.", old.Status, *changes.Status))
	}
	if changes.Inspector != nil && *changes.Inspector != "" && *changes.Inspector != old.Inspector {
		add(fmt.Sprintf("Fiscal %s foi atribuído.", *changes.Inspector))
	}
	if changes.Report != nil && *changes.Report != old.Report {
		add("Relatório da constatação foi atualizado.")
	}
	if changes.Actions != nil && !sameActionSet(old.Actions, changes.Actions) {
		add("Ações da fiscalização foram atualizadas.")
	}
	if changes.VerifiedInfractions != nil && !sameInfractions(old.VerifiedInfractions, changes.VerifiedInfractions) {
		add("Tipos de infração verificada foram atualizados.")
	}
	return entries
}

// FollowUpEntries builds the entries for scheduling a return visit. The
// forced status-change entry is emitted first and only when the case is not
// already pending follow-up.
func FollowUpEntries(current InspectionStatus, date string, user string, now time.Time) []HistoryEntry {
	var entries []HistoryEntry
	if current != StatusPendingFollowUp {
		entries = append(entries, HistoryEntry{
			Timestamp: now,
			User:      user,
			Change:    fmt.Sprintf("Status alterado para %q.", StatusPendingFollowUp),
		})
	}
	entries = append(entries, HistoryEntry{
		Timestamp: now,
		User:      user,
		Change:    fmt.Sprintf("Agendamento de retorno criado para %s.", FormatDate(date)),
	})
	return entries
}

// PhotoEntry builds the entry for a newly attached evidence photo.
func PhotoEntry(name, user string, now time.Time) HistoryEntry {
	return HistoryEntry{
		Timestamp: now,
		User:      user,
		Change:    fmt.Sprintf("Nova foto adicionada: %s.", name),
	}
}

// SortHistory orders entries newest-first. The sort is stable so entries
// sharing a timestamp keep their insertion order.
func SortHistory(entries []HistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}

// FormatDate renders a date-only value ("2006-01-02") as pt-BR dd/mm/yyyy.
// Unparseable input is returned as-is.
func FormatDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("02/01/2006")
}

func sameActionSet(a, b []InspectionAction) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[InspectionAction]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		if !set[v] {
			return false
		}
	}
	return true
}

func sameInfractions(a, b map[InspectionType]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

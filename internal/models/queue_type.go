package models

// QueueType identifies one of the fixed service categories a customer can
// take a ticket for.
type QueueType string

const (
	QueueCaja           QueueType = "CAJA"
	QueuePersonalBanker QueueType = "PERSONAL_BANKER"
	QueueEmpresas       QueueType = "EMPRESAS"
	QueueGerencia       QueueType = "GERENCIA"
)

// QueueTypeInfo describes the static attributes of a queue type: the average
// per-ticket service time, the cross-queue priority rank and the ticket
// number prefix.
type QueueTypeInfo struct {
	Name               QueueType
	DisplayName        string
	AverageTimeMinutes int
	PriorityRank       int
	NumberPrefix       string
}

// queueTypeTable is the fixed registry. Priority rank is only consulted when
// an advisor could serve more than one queue type; today each advisor serves
// exactly one.
var queueTypeTable = []QueueTypeInfo{
	{Name: QueueCaja, DisplayName: "Caja", AverageTimeMinutes: 5, PriorityRank: 1, NumberPrefix: "C"},
	{Name: QueuePersonalBanker, DisplayName: "Personal Banker", AverageTimeMinutes: 15, PriorityRank: 2, NumberPrefix: "P"},
	{Name: QueueEmpresas, DisplayName: "Empresas", AverageTimeMinutes: 20, PriorityRank: 3, NumberPrefix: "E"},
	{Name: QueueGerencia, DisplayName: "Gerencia", AverageTimeMinutes: 30, PriorityRank: 4, NumberPrefix: "G"},
}

// AllQueueTypes returns the registry entries in declaration order.
func AllQueueTypes() []QueueTypeInfo {
	out := make([]QueueTypeInfo, len(queueTypeTable))
	copy(out, queueTypeTable)
	return out
}

// QueueTypesByPriority returns the registry entries ordered by descending
// priority rank, the scan order the assignment engine uses when an advisor
// serves multiple queue types.
func QueueTypesByPriority() []QueueTypeInfo {
	out := AllQueueTypes()
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].PriorityRank > out[i].PriorityRank {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// Valid reports whether q names a registered queue type.
func (q QueueType) Valid() bool {
	for _, info := range queueTypeTable {
		if info.Name == q {
			return true
		}
	}
	return false
}

// Info returns the registry entry for q. The zero QueueTypeInfo is returned
// for unknown types; callers should validate first.
func (q QueueType) Info() QueueTypeInfo {
	for _, info := range queueTypeTable {
		if info.Name == q {
			return info
		}
	}
	return QueueTypeInfo{}
}

// DisplayName returns the human-readable queue name.
func (q QueueType) DisplayName() string {
	return q.Info().DisplayName
}

package saga

// MultiNotifier fans each outcome out to every notifier in order.
type MultiNotifier []Notifier

func (m MultiNotifier) SagaFinished(orderID string, outcome SagaOutcome, message string) {
	for _, n := range m {
		if n != nil {
			n.SagaFinished(orderID, outcome, message)
		}
	}
}

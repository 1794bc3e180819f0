package queue

type EnqueueResult string

const (
	EnqueueAccepted  EnqueueResult = "accepted"
	EnqueueCoalesced EnqueueResult = "coalesced"
	EnqueueDropped   EnqueueResult = "dropped"
)

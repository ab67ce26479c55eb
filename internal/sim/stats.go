package sim

// Counter aggregates outcomes of a simulated season.
type Counter struct {
	Assigned  int
	Accepted  int
	Rejected  int
	Completed int
	Canceled  int
	TotalPay  int64
}

func (c *Counter) AddAssigned(n int)   { c.Assigned += n }
func (c *Counter) AddAccepted()        { c.Accepted++ }
func (c *Counter) AddRejected()        { c.Rejected++ }
func (c *Counter) AddCompleted()       { c.Completed++ }
func (c *Counter) AddCanceled(n int)   { c.Canceled += n }
func (c *Counter) AddPay(amount int64) { c.TotalPay += amount }

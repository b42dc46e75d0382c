package scheduler

import "testing"

func TestComputePriority_DecreasesAsDomainPagesGrow(t *testing.T) {
	prev := computePriority(0, 0)
	for domainPages := 1; domainPages <= 20; domainPages++ {
		next := computePriority(domainPages, 0)
		if next >= prev {
			t.Fatalf("expected priority to strictly decrease: domainPages=%d prev=%v next=%v", domainPages, prev, next)
		}
		prev = next
	}
}

func TestComputePriority_SuperdomainTermIsDiscounted(t *testing.T) {
	// Moving the superdomain counter should move priority by far less than
	// moving the domain counter by the same amount, since SuperdomainWeight
	// discounts it.
	baseline := computePriority(0, 0)
	domainShift := baseline - computePriority(5, 0)
	superShift := baseline - computePriority(0, 5)

	if superShift >= domainShift {
		t.Fatalf("expected superdomain shift (%v) to be smaller than domain shift (%v)", superShift, domainShift)
	}
}

func TestComputePriority_ZeroCountsIsMaximal(t *testing.T) {
	max := computePriority(0, 0)
	for domainPages := 0; domainPages < 5; domainPages++ {
		for superPages := 0; superPages < 5; superPages++ {
			if domainPages == 0 && superPages == 0 {
				continue
			}
			if computePriority(domainPages, superPages) >= max {
				t.Errorf("expected (0,0) to be the maximal priority, got domainPages=%d superPages=%d", domainPages, superPages)
			}
		}
	}
}

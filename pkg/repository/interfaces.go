package repository

import "github.com/medrex/clinic-scheduling/pkg/interfaces"

var (
	_ interfaces.IdentityRepository     = (*AccountRepository)(nil)
	_ interfaces.PatientRepository      = (*AccountRepository)(nil)
	_ interfaces.PrescriptionRepository = (*PrescriptionRepository)(nil)
)

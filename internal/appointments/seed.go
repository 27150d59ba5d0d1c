package appointments

import "time"

// SeedAppointments returns the demo appointments a fresh store starts with.
// Their instants are anchored to now so "Today" and "Tomorrow" stay true.
func SeedAppointments(now time.Time) []Appointment {
	today := time.Date(now.Year(), now.Month(), now.Day(), 14, 30, 0, 0, now.Location())
	tomorrow := time.Date(now.Year(), now.Month(), now.Day()+1, 9, 0, 0, 0, now.Location())
	return []Appointment{
		{
			ID:            "1",
			PatientName:   "Alex Johnson",
			PatientMobile: "9876543210",
			DoctorName:    "Dr. Sarah Chen",
			Specialty:     "Cardiology Specialist",
			Date:          "Today",
			Time:          "14:30",
			ScheduledAt:   &today,
			Status:        StatusPending,
			Type:          KindVideo,
			MeetLink:      "https://meet.google.com/abc-defg-hij",
			ImageURL:      "https://picsum.photos/100/100",
		},
		{
			ID:            "2",
			PatientName:   "Alex Johnson",
			PatientMobile: "9876543210",
			DoctorName:    "Dr. Michael Ross",
			Specialty:     "Neurologist",
			Date:          "Tomorrow",
			Time:          "09:00",
			ScheduledAt:   &tomorrow,
			Status:        StatusUpcoming,
			Type:          KindInPerson,
			Location:      "MedCentral Clinic",
			ImageURL:      "https://picsum.photos/102/102",
		},
	}
}

// SeedDoctors returns the demo doctor roster.
func SeedDoctors() []Doctor {
	return []Doctor{
		{
			ID:        NumericDoctorID(1),
			Name:      "Dr. Sarah Chen",
			Specialty: "Cardiology Specialist",
			Rating:    4.9,
			Image:     "https://images.unsplash.com/photo-1559839734-2b71ea197ec2?q=80&w=2070&auto=format&fit=crop",
			Match:     98,
			Price:     120,
			StartTime: "09:00",
			EndTime:   "22:00",
			About:     "Expert in cardiovascular health with 15 years of experience.",
		},
		{
			ID:        NumericDoctorID(2),
			Name:      "Dr. Michael Ross",
			Specialty: "Neurologist",
			Rating:    4.8,
			Image:     "https://images.unsplash.com/photo-1612349317150-e413f6a5b16d?q=80&w=2070&auto=format&fit=crop",
			Match:     95,
			Price:     150,
			StartTime: "10:00",
			EndTime:   "22:00",
			About:     "Specializing in neurological disorders and migraine treatment.",
		},
		{
			ID:        NumericDoctorID(3),
			Name:      "Dr. Emily White",
			Specialty: "Dermatologist",
			Rating:    4.7,
			Image:     "https://images.unsplash.com/photo-1594824476967-48c8b964273f?q=80&w=1000&auto=format&fit=crop",
			Match:     92,
			Price:     100,
			StartTime: "08:30",
			EndTime:   "22:00",
			About:     "Passionate about skin health and cosmetic dermatology.",
		},
	}
}

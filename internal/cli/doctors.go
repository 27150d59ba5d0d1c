package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/medipulse/internal/appointments"
)

func findDoctor(list []appointments.Doctor, ref string) (appointments.Doctor, error) {
	ref = strings.TrimSpace(ref)
	for _, d := range list {
		if d.ID.String() == ref {
			return d, nil
		}
	}
	for _, d := range list {
		if strings.EqualFold(d.Name, ref) {
			return d, nil
		}
	}
	return appointments.Doctor{}, fmt.Errorf("%w: doctor %q", appointments.ErrNotFound, ref)
}

func runDoctors(_ context.Context, rt *Runtime, args []string) error {
	if err := parse(newFlags("doctors", rt.env.Stderr), args); err != nil {
		return err
	}
	printDoctors(rt.env.Stdout, rt.workflow.Doctors())
	return nil
}

func runSlots(_ context.Context, rt *Runtime, args []string) error {
	fs := newFlags("slots", rt.env.Stderr)
	doctor := fs.String("doctor", "", "doctor id or name")
	day := fs.String("day", "", "YYYY-MM-DD (default today)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "doctor"); err != nil {
		return err
	}
	d, err := findDoctor(rt.workflow.Doctors(), *doctor)
	if err != nil {
		return err
	}
	on := time.Now()
	if *day != "" {
		on, err = time.ParseInLocation("2006-01-02", *day, time.Local)
		if err != nil {
			fmt.Fprintf(fs.Output(), "slots: bad -day %q\n", *day)
			return errUsage
		}
	}
	slots := rt.workflow.Slots(d, on)
	if len(slots) == 0 {
		fmt.Fprintln(rt.env.Stdout, mutedStyle.Render("No free slots."))
		return nil
	}
	fmt.Fprintln(rt.env.Stdout, strings.Join(slots, " "))
	return nil
}

// doctorFlags binds the editable profile fields to fs.
type doctorFlags struct {
	name, specialty, image, about, start, end *string
	rating, price                             *float64
	match                                     *int
}

func bindDoctor(fs *flag.FlagSet) doctorFlags {
	return doctorFlags{
		name:      fs.String("name", "", "doctor name"),
		specialty: fs.String("specialty", "", "specialty"),
		image:     fs.String("image", "", "profile image URL"),
		about:     fs.String("about", "", "short biography"),
		start:     fs.String("start", "", "first bookable time HH:MM"),
		end:       fs.String("end", "", "end of the working day HH:MM"),
		rating:    fs.Float64("rating", 0, "rating 0-5"),
		price:     fs.Float64("price", 0, "consultation price"),
		match:     fs.Int("match", 0, "match score 0-100"),
	}
}

// apply copies the flags the user actually set onto d.
func (f doctorFlags) apply(fs *flag.FlagSet, d appointments.Doctor) appointments.Doctor {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "name":
			d.Name = strings.TrimSpace(*f.name)
		case "specialty":
			d.Specialty = strings.TrimSpace(*f.specialty)
		case "image":
			d.Image = *f.image
		case "about":
			d.About = *f.about
		case "start":
			d.StartTime = *f.start
		case "end":
			d.EndTime = *f.end
		case "rating":
			d.Rating = *f.rating
		case "price":
			d.Price = *f.price
		case "match":
			d.Match = *f.match
		}
	})
	return d
}

func runAddDoctor(ctx context.Context, rt *Runtime, args []string) error {
	fs := newFlags("add-doctor", rt.env.Stderr)
	f := bindDoctor(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "name", "specialty"); err != nil {
		return err
	}
	d, err := rt.workflow.AddDoctor(ctx, f.apply(fs, appointments.Doctor{}))
	return reportDoctor(rt, "Added", d, err)
}

func runAssistantAddDoctor(ctx context.Context, rt *Runtime, args []string) error {
	fs := newFlags("assistant-add-doctor", rt.env.Stderr)
	name := fs.String("name", "", "doctor name")
	specialty := fs.String("specialty", "", "specialty")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "name", "specialty"); err != nil {
		return err
	}
	d, err := rt.workflow.AssistantAddDoctor(ctx, *name, *specialty)
	return reportDoctor(rt, "Added", d, err)
}

func runUpdateDoctor(ctx context.Context, rt *Runtime, args []string) error {
	fs := newFlags("update-doctor", rt.env.Stderr)
	id := fs.String("id", "", "doctor id")
	f := bindDoctor(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "id"); err != nil {
		return err
	}
	current, err := findDoctor(rt.workflow.Doctors(), *id)
	if err != nil {
		return err
	}
	updated := f.apply(fs, current)
	err = rt.workflow.UpdateDoctor(ctx, updated)
	return reportDoctor(rt, "Updated", updated, err)
}

func runRemoveDoctor(ctx context.Context, rt *Runtime, args []string) error {
	fs := newFlags("remove-doctor", rt.env.Stderr)
	id := fs.String("id", "", "doctor id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "id"); err != nil {
		return err
	}
	d, err := findDoctor(rt.workflow.Doctors(), *id)
	if err != nil {
		return err
	}
	err = rt.workflow.DeleteDoctor(ctx, d.ID)
	if err == nil || isQueued(err) {
		fmt.Fprintln(rt.env.Stdout, "Removed", d.Name)
	}
	return err
}

func reportDoctor(rt *Runtime, verb string, d appointments.Doctor, err error) error {
	if err != nil && !isQueued(err) {
		return err
	}
	fmt.Fprintf(rt.env.Stdout, "%s %s\n", verb, d.Name)
	printDoctors(rt.env.Stdout, []appointments.Doctor{d})
	return err
}

package db

import (
	"context"
	"fmt"
)

// CreateFixturesDatabase creates a test database with realistic sample data
func CreateFixturesDatabase(dbPath string) error {
	if err := Initialize(dbPath); err != nil {
		return fmt.Errorf("initializing fixtures database: %w", err)
	}

	database, err := Open(dbPath, nil)
	if err != nil {
		return fmt.Errorf("opening fixtures database: %w", err)
	}
	defer database.Close()

	ctx := context.Background()

	fixtures := []Company{
		// Customers
		{
			Name:                "Acme Logistics",
			Category:            "customer",
			Notes:               NewNullString("Renewal due in Q3. Wants volume pricing on the freight module."),
			AssignedSalesperson: NewNullString("Alex"),
		},
		{
			Name:                "Blue Harbor Foods",
			Category:            "customer",
			Notes:               NewNullString("Follow up Friday"),
			AssignedSalesperson: NewNullString("Alex"),
		},
		{
			Name:                "Northwind Traders",
			Category:            "customer",
			AssignedSalesperson: NewNullString("Priya"),
		},

		// Prospects
		{
			Name:                "Cobalt Robotics",
			Category:            "prospect",
			Notes:               NewNullString("Met at the spring trade show. Interested in a pilot."),
			AssignedSalesperson: NewNullString("Priya"),
		},
		{
			Name:     "Delta Microgrid",
			Category: "prospect",
		},
		{
			Name:                "Evergreen Clinics",
			Category:            "prospect",
			Notes:               NewNullString("Procurement cycle starts in January."),
			AssignedSalesperson: NewNullString("Jordan"),
		},

		// Partners
		{
			Name:                "Fulcrum Integrations",
			Category:            "partner",
			Notes:               NewNullString("Reseller for the EU region."),
			AssignedSalesperson: NewNullString("Jordan"),
		},
		{
			Name:     "Granite Consulting",
			Category: "partner",
		},

		// Vendors and churned accounts
		{
			Name:     "Helix Cloud",
			Category: "vendor",
			Notes:    NewNullString("Hosting provider. Contract reviewed yearly."),
		},
		{
			Name:                "Ironclad Insurance",
			Category:            "churned",
			Notes:               NewNullString("Left for a competitor after the price change."),
			AssignedSalesperson: NewNullString("Alex"),
		},
	}

	for _, company := range fixtures {
		if _, err := database.AddCompany(ctx, company); err != nil {
			return fmt.Errorf("adding fixture company %s: %w", company.Name, err)
		}
	}

	return nil
}

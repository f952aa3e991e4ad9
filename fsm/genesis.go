package fsm

import (
	"path/filepath"

	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
)

// GenesisState is the initial book of the dex: funded positions and scheduled auctions
type GenesisState struct {
	Positions []*dex.Position               `json:"positions"`
	Auctions  []dex.DutchAuctionDescription `json:"auctions"`
}

// StateExport is a full snapshot of the dex state at a committed height
type StateExport struct {
	Height      uint64             `json:"height"`
	Positions   []dex.PositionView `json:"positions"`
	Auctions    []*dex.AuctionView `json:"auctions"`
	VCB         []dex.Value        `json:"vcb"`
	ArbReserves []dex.Value        `json:"arbReserves"`
	Root        lib.HexBytes       `json:"commitmentRoot"`
}

// NewFromGenesisFile() creates a new beginning state from the genesis file of the data directory
func (s *StateMachine) NewFromGenesisFile() lib.ErrorI {
	genesis, err := ReadGenesisFromFile(filepath.Join(s.Config.DataDirPath, lib.GenesisFilePath))
	if err != nil {
		return err
	}
	return s.NewFromGenesis(genesis)
}

// NewFromGenesis() writes the genesis book and commits it as the first version
func (s *StateMachine) NewFromGenesis(genesis *GenesisState) lib.ErrorI {
	if s.LastHeight() != 0 {
		return ErrNonEmptyState(s.LastHeight())
	}
	if err := s.NewStateFromGenesis(genesis); err != nil {
		s.Discard()
		return err
	}
	version, err := s.Commit()
	if err != nil {
		return err
	}
	s.log.Infof("Genesis committed at version %d with %d positions and %d auctions", version, len(genesis.Positions), len(genesis.Auctions))
	return nil
}

// ReadGenesisFromFile() reads and validates a GenesisState object from a file
func ReadGenesisFromFile(path string) (*GenesisState, lib.ErrorI) {
	genesis := new(GenesisState)
	if err := lib.NewJSONFromFile(genesis, filepath.Dir(path), filepath.Base(path)); err != nil {
		return nil, err
	}
	return genesis, ValidateGenesisState(genesis)
}

// NewStateFromGenesis() opens every genesis position and schedules every genesis auction
func (s *StateMachine) NewStateFromGenesis(genesis *GenesisState) lib.ErrorI {
	if err := ValidateGenesisState(genesis); err != nil {
		return err
	}
	s.events.Refer(lib.EventStageBeginBlock)
	for _, p := range genesis.Positions {
		if _, err := s.OpenPosition(p); err != nil {
			return err
		}
	}
	for _, d := range genesis.Auctions {
		if err := s.HandleDutchAuctionSchedule(&dex.DutchAuctionSchedule{Description: d}); err != nil {
			return err
		}
	}
	s.events.Reset()
	return s.CheckCustody()
}

// ValidateGenesisState() validates a GenesisState object
func ValidateGenesisState(genesis *GenesisState) lib.ErrorI {
	if genesis == nil {
		return ErrInvalidGenesis("empty genesis")
	}
	for _, p := range genesis.Positions {
		if p == nil {
			return ErrInvalidGenesis("nil position")
		}
		if p.State != dex.PositionStateOpened {
			return dex.ErrInvalidPositionState()
		}
		if err := p.Validate(); err != nil {
			return err
		}
	}
	for _, d := range genesis.Auctions {
		if err := d.Validate(); err != nil {
			return err
		}
		// the genesis itself is version 1, the earliest trigger is the first block
		if d.StartHeight < 2 {
			return dex.ErrInvalidAuctionHeights()
		}
	}
	return nil
}

// ExportState() creates a StateExport object from the current state
func (s *StateMachine) ExportState() (export *StateExport, err lib.ErrorI) {
	export = &StateExport{Height: s.LastHeight()}
	err = s.IterateAndExecute(PositionPrefix(), func(_, value []byte) lib.ErrorI {
		p := new(dex.Position)
		if e := lib.Unmarshal(value, p); e != nil {
			return e
		}
		export.Positions = append(export.Positions, p.View())
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = s.IterateAndExecute(AuctionPrefix(), func(_, value []byte) lib.ErrorI {
		a := new(dex.DutchAuction)
		if e := lib.Unmarshal(value, a); e != nil {
			return e
		}
		export.Auctions = append(export.Auctions, &dex.AuctionView{Id: a.Description.Id(), DutchAuction: a})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if export.VCB, err = s.VCBBalances(); err != nil {
		return nil, err
	}
	if export.ArbReserves, err = s.ArbitrageReserves(); err != nil {
		return nil, err
	}
	if export.Root, err = s.CommitmentRoot(); err != nil {
		return nil, err
	}
	return export, nil
}

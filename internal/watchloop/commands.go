package watchloop

import (
	"context"
	"fmt"

	"github.com/dkoosis/sasswatch/internal/command"
	"github.com/dkoosis/sasswatch/internal/compiler"
	"github.com/dkoosis/sasswatch/internal/config"
	"github.com/dkoosis/sasswatch/internal/console"
	"github.com/dkoosis/sasswatch/internal/postcss"
	"github.com/dkoosis/sasswatch/internal/sassdirs"
)

// HandleCommand executes one operator input line and reports whether the
// loop should keep going. An error means the loop must stop.
func (c *Coordinator) HandleCommand(line string) (bool, error) {
	cmd := command.Parse(line)
	cont, full, err := c.execute(cmd, line)
	if err != nil {
		return false, err
	}
	if cont && cmd != command.Empty {
		c.printMenu(full)
	}
	return cont, nil
}

func (c *Coordinator) execute(cmd command.Command, line string) (cont, fullMenu bool, err error) {
	cont = true
	switch cmd {
	case command.Empty:
	case command.Unknown:
		c.con.Warnf("Unknown Command: %s", command.Normalize(line))
	case command.Quit:
		cont = false
	case command.Help:
		fullMenu = true
	case command.Restart:
		cont, err = c.restartWatchers(true, false, false, false)
	case command.Immediate:
		cont, err = c.restartWatchers(true, true, false, false)
	case command.Compress:
		if !c.opts.PrettyPrint {
			c.con.Warnf("Compression Is Already On")
			break
		}
		c.opts = c.opts.WithPrettyPrint(false)
		if cont, err = c.restartWatchers(true, true, false, false); cont && err == nil {
			c.con.Warnf("Compression Was Turned On")
		}
	case command.PrettyPrint:
		if c.opts.PrettyPrint {
			c.con.Warnf("Compression Is Already Off")
			break
		}
		c.opts = c.opts.WithPrettyPrint(true)
		if cont, err = c.restartWatchers(true, true, false, false); cont && err == nil {
			c.con.Warnf("Compression Was Turned Off")
		}
	case command.MapFiles:
		if c.opts.KeepMaps {
			c.con.Warnf("Map File Generation Is Already On")
			break
		}
		c.opts = c.opts.WithKeepMaps(true)
		if cont, err = c.restartWatchers(true, true, false, false); cont && err == nil {
			c.con.Warnf("Map File Generation Was Turned On")
		}
	case command.NoMapFiles:
		if !c.opts.KeepMaps {
			c.con.Warnf("Map File Generation Was Already Off")
			break
		}
		c.opts = c.opts.WithKeepMaps(false)
		if cont, err = c.restartWatchers(true, false, false, false); cont && err == nil {
			c.con.Warnf("Map File Generation Was Turned Off")
		}
	case command.ShowConfig:
		c.showConfiguration()
	case command.ShowCSS:
		c.showFileStatus("LIST OF GENERATED CSS", "")
	case command.ShowMapFiles:
		c.showFileStatus("LIST OF MAPFILES", mapSuffix)
	case command.DeleteCSS:
		c.deleteGeneratedCSS()
	case command.DeleteMapFiles:
		c.deleteGeneratedMapFiles()
	case command.DeleteAll:
		c.deleteGeneratedCSS()
		c.deleteGeneratedMapFiles()
	case command.MakeDebug:
		c.opts = c.opts.WithPrettyPrint(true).WithKeepMaps(true)
		cont, err = c.restartWatchers(true, true, true, true)
	case command.MakeRelease:
		c.opts = c.opts.WithPrettyPrint(false).WithKeepMaps(false)
		cont, err = c.restartWatchers(true, true, true, true)
	case command.Version:
		c.showVersion()
	case command.About:
		c.showAbout()
	case command.Clear:
		c.con.ClearScreen()
	default:
		err = fmt.Errorf("unhandled command %q", cmd)
	}
	return cont, fullMenu, err
}

// RunImmediate compiles every pair once, then post-processes every expected
// output. It reports whether both steps succeeded; the post-processor only
// runs when sass succeeded.
func RunImmediate(ctx context.Context, opts config.Options, set *sassdirs.Set, con *console.Console) bool {
	set.InitializeOutputStats()

	inv := compiler.NewInvocation(opts, false, set.CompilerArgs())
	res, err := compiler.RunOnce(ctx, inv, con, con.Out())
	if err != nil {
		con.Errorf("%v", err)
		return false
	}
	con.Println(fmt.Sprintf("%d File(s) were modified by sass", len(set.ModifiedFiles())))
	if res.ExitCode != 0 {
		return false
	}

	if err := postcss.NewTool(opts, con).ProcessAll(ctx, set); err != nil {
		con.Errorf("%v", err)
		return false
	}
	return true
}

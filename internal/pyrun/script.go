package pyrun

// debugEnv is the environment toggle read by the collector epilogue.
// When set to "1" the epilogue reports its progress on stderr.
const debugEnv = "MCP_RUN_PY_DEBUG"

// collectorEpilogue is appended to user scripts when plot capture is
// enabled. At script end it forces matplotlib to materialize pending
// figures under the non-interactive Agg backend, renders each one to a
// bounded-size PNG, and prints the full list as JSON on a single
// sentinel-prefixed stdout line. Every failure path still emits the
// sentinel with an empty list; the epilogue never raises past the
// script boundary.
const collectorEpilogue = `
# --- figure collector ---
try:
    import matplotlib
    matplotlib.use('Agg')
    import matplotlib.pyplot as plt
    import matplotlib._pylab_helpers as pylab_helpers
    import json as _json
    import io, base64, sys, os
    _DEBUG = os.environ.get('MCP_RUN_PY_DEBUG') == '1'
    _plots = []
    if _DEBUG: print('DEBUG: collecting figures...', file=sys.stderr)
    try:
        plt.show(block=False)
    except Exception as _e:
        if _DEBUG: print('DEBUG: plt.show() error: %s' % _e, file=sys.stderr)
    _managers = list(pylab_helpers.Gcf.get_all_fig_managers())
    if _DEBUG: print('DEBUG: %d matplotlib figure managers' % len(_managers), file=sys.stderr)
    for _i, _fm in enumerate(_managers):
        _fig = _fm.canvas.figure
        try:
            _buf = io.BytesIO()
            _fig.set_size_inches(8, 6)
            _fig.savefig(_buf, format='png', bbox_inches='tight', dpi=100)
            try:
                _title = _fig.axes[0].get_title() if getattr(_fig, 'axes', None) else 'Plot'
            except Exception:
                _title = 'Plot'
            if not _title:
                _title = 'Plot'
            _plots.append({'type': 'base64', 'data': 'data:image/png;base64,' + base64.b64encode(_buf.getvalue()).decode('ascii'), 'title': _title})
        except Exception as _e:
            if _DEBUG: print('DEBUG: figure %d failed: %s' % (_i + 1, _e), file=sys.stderr)
            try:
                _buf = io.BytesIO()
                _fig.savefig(_buf, format='png', dpi=72)
                _plots.append({'type': 'base64', 'data': 'data:image/png;base64,' + base64.b64encode(_buf.getvalue()).decode('ascii'), 'title': 'Plot'})
            except Exception:
                pass
    try:
        import plotly
        for _name, _obj in list(globals().items()):
            try:
                if hasattr(_obj, 'to_image') and callable(getattr(_obj, 'to_image', None)) and hasattr(_obj, '_data') and hasattr(_obj, 'layout'):
                    _title = 'Plotly Plot'
                    try:
                        if getattr(_obj.layout.title, 'text', None):
                            _title = _obj.layout.title.text
                    except Exception:
                        pass
                    _img = _obj.to_image(format='png', width=800, height=600, scale=1.0)
                    _plots.append({'type': 'base64', 'data': 'data:image/png;base64,' + base64.b64encode(_img).decode('ascii'), 'title': _title})
            except Exception as _e:
                if _DEBUG: print('DEBUG: plotly %s failed: %s' % (_name, _e), file=sys.stderr)
                continue
    except ImportError:
        if _DEBUG: print('DEBUG: plotly not available', file=sys.stderr)
    except Exception as _e:
        if _DEBUG: print('DEBUG: plotly scan failed: %s' % _e, file=sys.stderr)
    if _DEBUG: print('DEBUG: %d plots collected' % len(_plots), file=sys.stderr)
    print()
    print('__MCP_PLOTS__=' + _json.dumps(_plots))
except Exception as _e:
    try:
        import sys
        print('DEBUG: figure collector error: %s' % _e, file=sys.stderr)
        import json as _json
        print('__MCP_PLOTS__=' + _json.dumps([]))
    except Exception:
        pass
`

// Prepare returns the final script to execute. With capture disabled
// the user code passes through unchanged; otherwise the collector
// epilogue is appended so the manifest is emitted at script end.
func Prepare(code string, capturePlots bool) string {
	if !capturePlots {
		return code
	}
	return code + "\n\n" + collectorEpilogue + "\n"
}
